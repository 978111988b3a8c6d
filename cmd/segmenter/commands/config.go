package commands

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-segmenter/segmentation"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the segmenter configuration after applying --config.

The output can be saved and edited, then passed back with --config.

Examples:
  segmenter config > seg.yaml
  segmenter config --config seg.json --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		format := outputFormat
		if format == formatText {
			format = formatYAML
		}
		return outputResult(cfg, outputFile, format, nil)
	},
}

// loadConfig returns DefaultConfig overlaid with --config, if given
func loadConfig() (segmentation.Config, error) {
	if cfgFile == "" {
		return segmentation.DefaultConfig(), nil
	}
	return segmentation.LoadConfigFile(cfgFile)
}
