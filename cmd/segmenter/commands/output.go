package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
)

// Output formats accepted by --format
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// outputResult writes result to outputPath, or stdout when it is empty.
// text is used for the text format.
func outputResult(result any, outputPath, format string, text func(io.Writer) error) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writeResult(w, result, format, text)
}

func writeResult(w io.Writer, result any, format string, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case formatYAML:
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = w.Write(data)
		return err
	case formatText, "":
		if text == nil {
			return writeResult(w, result, formatYAML, nil)
		}
		return text(w)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// writeText prints one line per segment
func (r *report) writeText(w io.Writer) error {
	cached := ""
	if r.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(w, "%s: %d segments, %d types, %s, %s features%s\n",
		r.File, len(r.Segments), r.SegmentTypes, formatDuration(r.Duration), r.Frontend, cached)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tLENGTH\tTYPE\tLEVEL")
	for i, s := range r.Segments {
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\t%d\t%.1f dB\n", i, s.Start, s.End, s.End-s.Start, s.Type, s.LevelDB)
	}
	return tw.Flush()
}

// formatDuration formats duration in seconds to human readable format
func formatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	if seconds < 3600 {
		mins := int(seconds / 60)
		secs := int(seconds) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(seconds / 3600)
	mins := (int(seconds) % 3600) / 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
