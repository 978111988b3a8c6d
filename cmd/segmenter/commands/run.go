package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/filters"
)

var (
	runClusters    int
	runFrontend    string
	runSampleRate  int
	runMaxDuration time.Duration
	runDCCutoff    float64
	runCacheDir    string
	runProgress    bool
)

var runCmd = &cobra.Command{
	Use:   "run <audio>",
	Short: "Segment an audio file",
	Long: `Segment a WAV, MP3 or Ogg Vorbis file into labelled sections.

The file is decoded to mono, DC-blocked, cut into blocks of window_duration
seconds every hop_duration seconds, and each block becomes one feature row.
Segments are runs of rows that share a section type.

Examples:
  segmenter run song.wav
  segmenter run song.ogg --features mfcc --clusters 5
  segmenter run song.mp3 --config seg.yaml --format json -o song.json
  segmenter run song.wav --cache ~/.cache/segmenter --progress`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := analysisOptions{
			Config:      cfg,
			Frontend:    runFrontend,
			Clusters:    runClusters,
			SampleRate:  runSampleRate,
			MaxDuration: runMaxDuration,
			DCCutoff:    runDCCutoff,
			CacheDir:    runCacheDir,
		}
		if runProgress {
			opts.Progress = os.Stderr
		}

		rep, err := analyse(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		return outputResult(rep, outputFile, outputFormat, rep.writeText)
	},
}

func init() {
	runCmd.Flags().IntVar(&runClusters, "clusters", 0, "number of section types (default: from config)")
	runCmd.Flags().StringVar(&runFrontend, "features", frontendConstantQ, "feature front end: constq or mfcc")
	runCmd.Flags().IntVar(&runSampleRate, "sample-rate", 0, "resample to this rate before analysis (default: file rate)")
	runCmd.Flags().DurationVar(&runMaxDuration, "max-duration", 0, "analyse at most this much audio")
	runCmd.Flags().Float64Var(&runDCCutoff, "dc-cutoff", filters.DefaultDCCutoff, "DC blocker cutoff in Hz, 0 to disable")
	runCmd.Flags().StringVar(&runCacheDir, "cache", "", "result cache directory")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "show a progress bar on stderr")
}
