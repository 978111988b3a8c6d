package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-segmenter/logging"
)

var (
	// Global flags
	cfgFile      string
	outputFile   string
	outputFormat string
	verbose      bool
	logLevel     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "segmenter",
	Short: "Structural audio segmenter",
	Long: `segmenter splits a recording into contiguous, labelled sections.

Features are constant-Q spectra (default) or block-averaged MFCCs. A hidden
Markov model and a time-constrained clustering assign each block a section
type; runs of equal types become segments.

Examples:
  # Segment a file with the default configuration
  segmenter run song.wav

  # Four section types, JSON output, results cached on disk
  segmenter run song.mp3 --clusters 4 --format json --cache ~/.cache/segmenter

  # Show the configuration a file would produce
  segmenter config --config seg.yaml --format yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "segmenter config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "F", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

// initLogging routes all component loggers to stderr. It must run before
// any component is constructed, since components capture the global
// logger when they are created.
func initLogging() {
	level := logging.ParseLevel(logLevel)
	if verbose {
		level = logging.DebugLevel
	}
	logging.SetGlobalLogger(logging.NewWriterLogger(os.Stderr, level))
}
