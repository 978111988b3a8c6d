package segmentation

import (
	"github.com/RyanBlaney/sonido-segmenter/algorithms/filters"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/spectral"
	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// ConstantQTransform projects one FFT spectrum onto constant-Q bins
type ConstantQTransform interface {
	Bins() int
	FFTLength() int
	Process(re, im, cqRe, cqIm []float64)
}

// TransformFactory builds the constant-Q transform during Initialise
type TransformFactory func(config spectral.ConstantQConfig) (ConstantQTransform, error)

// Decimator downsamples a whole buffer to len/Factor() samples
type Decimator interface {
	Factor() int
	Process(input []float64) ([]float64, error)
}

// DecimatorProvider reports the largest supported factor and creates
// decimators.
type DecimatorProvider interface {
	MaxFactor() int
	NewDecimator(inputRate, factor int) (Decimator, error)
}

// Option configures a Segmenter
type Option func(*Segmenter)

// WithLogger replaces the global logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Segmenter) {
		if logger != nil {
			s.logger = logger.WithFields(logging.Fields{"component": "segmenter"})
		}
	}
}

// WithDecimators replaces the resampler-backed decimator provider
func WithDecimators(p DecimatorProvider) Option {
	return func(s *Segmenter) {
		if p != nil {
			s.decimators = p
		}
	}
}

// WithTransformFactory replaces the sparse-kernel constant-Q transform
func WithTransformFactory(f TransformFactory) Option {
	return func(s *Segmenter) {
		if f != nil {
			s.newTransform = f
		}
	}
}

func newConstantQ(config spectral.ConstantQConfig) (ConstantQTransform, error) {
	cq, err := spectral.NewConstantQ(config)
	if err != nil {
		return nil, err
	}
	return cq, nil
}

// resamplerDecimators adapts filters.Decimators to DecimatorProvider.
type resamplerDecimators struct {
	filters.Decimators
}

func (p resamplerDecimators) NewDecimator(inputRate, factor int) (Decimator, error) {
	d, err := p.New(inputRate, factor)
	if err != nil {
		return nil, err
	}
	return d, nil
}
