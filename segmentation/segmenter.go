package segmentation

import (
	"fmt"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/spectral"
	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// frameWindow tapers one FFT frame in place
type frameWindow interface {
	Size() int
	ApplyInPlace(frame []float64) error
}

// Segmenter accumulates one feature row per audio block and turns the
// resulting matrix into a Segmentation.
//
// A Segmenter is not safe for concurrent use.
type Segmenter struct {
	config       Config
	featureType  FeatureType
	clusters     int
	classifier   Classifier
	decimators   DecimatorProvider
	newTransform TransformFactory
	logger       logging.Logger

	sampleRate int
	factor     int
	ncoeff     int

	// frontend; nil until Initialise and again after Segment
	window    frameWindow
	fft       *spectral.FFT
	constq    ConstantQTransform
	decimator Decimator

	features     [][]float64
	segmentation Segmentation
}

// New creates a Segmenter. The classifier labels the feature matrix in
// Segment.
func New(config Config, classifier Classifier, opts ...Option) (*Segmenter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", ErrInvalidConfig)
	}

	s := &Segmenter{
		config:       config,
		featureType:  config.FeatureType,
		clusters:     config.Clusters,
		classifier:   classifier,
		decimators:   resamplerDecimators{},
		newTransform: newConstantQ,
		logger: logging.WithFields(logging.Fields{
			"component": "segmenter",
		}),
		factor: 1,
		fft:    spectral.NewFFT(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialise configures the frontend for sampleRate. With constant-Q
// features it plans the decimation factor, creates a decimator when the
// factor exceeds one, and builds the constant-Q transform at
// sampleRate/factor. With external features only the rate is recorded.
func (s *Segmenter) Initialise(sampleRate int) error {
	logger := s.logger.WithFields(logging.Fields{
		"function":    "Initialise",
		"sample_rate": sampleRate,
	})

	if sampleRate <= 0 {
		err := fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
		logger.Error(err, "Cannot initialise segmenter")
		return err
	}

	s.sampleRate = sampleRate
	s.factor = 1
	s.decimator = nil
	s.constq = nil
	s.window = nil
	s.ncoeff = 0

	if s.featureType == FeatureUnknown {
		logger.Debug("External features, no frontend built")
		return nil
	}

	factor := PlanDecimation(sampleRate, InternalRate, s.decimators.MaxFactor())
	if factor > 1 {
		d, err := s.decimators.NewDecimator(sampleRate, factor)
		if err != nil {
			logger.Error(err, "Failed to create decimator", logging.Fields{"factor": factor})
			return fmt.Errorf("failed to create decimator: %w", err)
		}
		s.decimator = d
	}

	cq, err := s.newTransform(spectral.ConstantQConfig{
		SampleRate:    float64(sampleRate / factor),
		MinFreq:       s.config.FMin,
		MaxFreq:       s.config.FMax,
		BinsPerOctave: s.config.BinsPerOctave,
		Threshold:     spectral.DefaultKernelThreshold,
	})
	if err != nil {
		s.decimator = nil
		logger.Error(err, "Failed to build constant-Q transform")
		return fmt.Errorf("failed to build constant-Q transform: %w", err)
	}

	s.factor = factor
	s.constq = cq
	s.ncoeff = cq.Bins()

	logger.Debug("Segmenter initialised", logging.Fields{
		"decimation_factor": factor,
		"bins":              s.ncoeff,
		"fft_length":        cq.FFTLength(),
		"window_size":       s.WindowSize(),
		"hop_size":          s.HopSize(),
	})
	return nil
}

// SetFeatures replaces the feature matrix with a deep copy of features and
// switches the segmenter to external features for the rest of its life.
func (s *Segmenter) SetFeatures(features [][]float64) {
	s.features = make([][]float64, len(features))
	for i, row := range features {
		s.features[i] = append([]float64(nil), row...)
	}
	s.featureType = FeatureUnknown

	s.logger.Debug("Features injected", logging.Fields{
		"function": "SetFeatures",
		"rows":     len(features),
	})
}

// WindowSize returns the extraction block length in samples
func (s *Segmenter) WindowSize() int {
	return int(s.config.WindowDuration * float64(s.sampleRate))
}

// HopSize returns the distance between feature rows in samples
func (s *Segmenter) HopSize() int {
	return int(s.config.HopDuration * float64(s.sampleRate))
}

// Segmentation returns a copy of the result of the last Segment call
func (s *Segmenter) Segmentation() Segmentation {
	return s.segmentation.Clone()
}

// FeatureCount returns the number of accumulated feature rows
func (s *Segmenter) FeatureCount() int {
	return len(s.features)
}

// Features returns a copy of the accumulated feature matrix
func (s *Segmenter) Features() [][]float64 {
	out := make([][]float64, len(s.features))
	for i, row := range s.features {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Bins returns the constant-Q bin count, or 0 before Initialise
func (s *Segmenter) Bins() int {
	return s.ncoeff
}

// DecimationFactor returns the factor chosen by the last Initialise
func (s *Segmenter) DecimationFactor() int {
	return s.factor
}

// SampleRate returns the input rate given to Initialise
func (s *Segmenter) SampleRate() int {
	return s.sampleRate
}

// FeatureType returns the active feature source
func (s *Segmenter) FeatureType() FeatureType {
	return s.featureType
}

// Clusters returns the cluster count used by the next Segment call
func (s *Segmenter) Clusters() int {
	return s.clusters
}

// Config returns the construction-time configuration
func (s *Segmenter) Config() Config {
	return s.config
}

// releaseFrontend drops everything only needed for extraction.
func (s *Segmenter) releaseFrontend() {
	s.constq = nil
	s.decimator = nil
	s.window = nil
}
