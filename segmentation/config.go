package segmentation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// FeatureType selects where the feature matrix comes from
type FeatureType int

const (
	// FeatureUnknown marks externally supplied features (see SetFeatures).
	FeatureUnknown FeatureType = iota
	// FeatureConstantQ marks features derived by ExtractFeatures.
	FeatureConstantQ
)

func (f FeatureType) String() string {
	switch f {
	case FeatureConstantQ:
		return "constq"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (f FeatureType) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *FeatureType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "constq", "constant-q", "constantq":
		*f = FeatureConstantQ
	case "unknown", "external", "":
		*f = FeatureUnknown
	default:
		return fmt.Errorf("%w: unknown feature type %q", ErrInvalidConfig, text)
	}
	return nil
}

// Config holds segmenter parameters. It is copied into the Segmenter at
// construction and never modified there.
type Config struct {
	FeatureType    FeatureType `json:"feature_type" yaml:"feature_type"`
	HopDuration    float64     `json:"hop_duration" yaml:"hop_duration"`       // seconds between feature rows
	WindowDuration float64     `json:"window_duration" yaml:"window_duration"` // seconds per extraction block
	FMin           float64     `json:"fmin" yaml:"fmin"`
	FMax           float64     `json:"fmax" yaml:"fmax"`
	BinsPerOctave  int         `json:"bins_per_octave" yaml:"bins_per_octave"`

	// Components is accepted for compatibility with stored configurations;
	// the default classifier fixes its own PCA size.
	Components int `json:"components" yaml:"components"`

	HMMStates          int `json:"hmm_states" yaml:"hmm_states"`
	Clusters           int `json:"clusters" yaml:"clusters"`
	HistogramLength    int `json:"histogram_length" yaml:"histogram_length"`
	NeighbourhoodLimit int `json:"neighbourhood_limit" yaml:"neighbourhood_limit"`
}

// DefaultConfig returns the standard constant-Q configuration
func DefaultConfig() Config {
	return Config{
		FeatureType:        FeatureConstantQ,
		HopDuration:        0.2,
		WindowDuration:     0.6,
		FMin:               62,
		FMax:               16000,
		BinsPerOctave:      8,
		Components:         20,
		HMMStates:          40,
		Clusters:           10,
		HistogramLength:    15,
		NeighbourhoodLimit: 20,
	}
}

// Validate checks ranges; every failure wraps ErrInvalidConfig
func (c Config) Validate() error {
	switch {
	case c.HopDuration <= 0:
		return fmt.Errorf("%w: hop duration must be positive, got %v", ErrInvalidConfig, c.HopDuration)
	case c.WindowDuration <= 0:
		return fmt.Errorf("%w: window duration must be positive, got %v", ErrInvalidConfig, c.WindowDuration)
	case c.FMin <= 0 || c.FMax <= c.FMin:
		return fmt.Errorf("%w: invalid frequency range [%v, %v]", ErrInvalidConfig, c.FMin, c.FMax)
	case c.BinsPerOctave <= 0:
		return fmt.Errorf("%w: bins per octave must be positive, got %d", ErrInvalidConfig, c.BinsPerOctave)
	case c.HMMStates <= 0:
		return fmt.Errorf("%w: HMM states must be positive, got %d", ErrInvalidConfig, c.HMMStates)
	case c.Clusters <= 0:
		return fmt.Errorf("%w: cluster count must be positive, got %d", ErrInvalidConfig, c.Clusters)
	case c.HistogramLength <= 0:
		return fmt.Errorf("%w: histogram length must be positive, got %d", ErrInvalidConfig, c.HistogramLength)
	case c.NeighbourhoodLimit < 0:
		return fmt.Errorf("%w: neighbourhood limit must not be negative, got %d", ErrInvalidConfig, c.NeighbourhoodLimit)
	}
	return nil
}

// LoadConfigFile overlays a YAML or JSON file onto DefaultConfig and
// validates the result. The format follows the file extension; anything
// else is tried as YAML and then JSON.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse file (tried YAML and JSON): %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
