// Package main provides the segmenter CLI.
//
// Usage:
//
//	segmenter [flags] <command> [args]
//
// Commands:
//
//	run     - Segment an audio file into labelled sections
//	config  - Print the effective segmenter configuration
package main

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-segmenter/cmd/segmenter/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
