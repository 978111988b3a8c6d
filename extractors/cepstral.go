package extractors

import (
	"fmt"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/spectral"
	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// FeatureExtractor turns a mono signal into one feature row per block.
// Row i describes samples [i*hop, i*hop+block).
type FeatureExtractor interface {
	Extract(pcm []float64) ([][]float64, error)
	Name() string
}

// BlockConfig sets the block layout shared with the segmenter
type BlockConfig struct {
	SampleRate int `json:"sample_rate"`
	BlockSize  int `json:"block_size"` // samples per row
	HopSize    int `json:"hop_size"`   // samples between rows
}

func (c BlockConfig) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.BlockSize <= 0 || c.HopSize <= 0 {
		return fmt.Errorf("invalid block layout: block %d, hop %d", c.BlockSize, c.HopSize)
	}
	return nil
}

// CepstralExtractor averages MFCC vectors over half-overlapping frames in
// each block.
type CepstralExtractor struct {
	blocks BlockConfig
	mfcc   *spectral.MFCC
	logger logging.Logger
}

// NewCepstralExtractor creates an extractor with the default MFCC setup
func NewCepstralExtractor(blocks BlockConfig) (*CepstralExtractor, error) {
	return NewCepstralExtractorWithConfig(blocks, spectral.DefaultMFCCConfig(blocks.SampleRate))
}

// NewCepstralExtractorWithConfig creates an extractor with a custom MFCC setup
func NewCepstralExtractorWithConfig(blocks BlockConfig, mfccConfig spectral.MFCCConfig) (*CepstralExtractor, error) {
	if err := blocks.validate(); err != nil {
		return nil, err
	}
	mfccConfig.SampleRate = blocks.SampleRate
	mfcc, err := spectral.NewMFCC(mfccConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MFCC: %w", err)
	}

	return &CepstralExtractor{
		blocks: blocks,
		mfcc:   mfcc,
		logger: logging.WithFields(logging.Fields{
			"component": "cepstral_extractor",
		}),
	}, nil
}

// Name returns "mfcc"
func (e *CepstralExtractor) Name() string {
	return "mfcc"
}

// Extract returns one mean-MFCC row per block
func (e *CepstralExtractor) Extract(pcm []float64) ([][]float64, error) {
	logger := e.logger.WithFields(logging.Fields{
		"function": "Extract",
		"samples":  len(pcm),
	})

	if len(pcm) < e.blocks.BlockSize {
		err := fmt.Errorf("signal of %d samples is shorter than one block (%d)", len(pcm), e.blocks.BlockSize)
		logger.Error(err, "Cannot extract cepstral features")
		return nil, err
	}

	total := (len(pcm)-e.blocks.BlockSize)/e.blocks.HopSize + 1
	rows := make([][]float64, 0, total)
	for i := range total {
		start := i * e.blocks.HopSize
		row, err := e.block(pcm[start : start+e.blocks.BlockSize])
		if err != nil {
			logger.Error(err, "Failed to process block", logging.Fields{"block": i})
			return nil, err
		}
		rows = append(rows, row)
	}

	logger.Debug("Cepstral features extracted", logging.Fields{
		"rows":   len(rows),
		"coeffs": e.mfcc.NumOutputs(),
	})
	return rows, nil
}

// block averages coefficients over frames of FFTSize stepping FFTSize/2.
// The first frame is zero-padded when the block is shorter than FFTSize.
func (e *CepstralExtractor) block(samples []float64) ([]float64, error) {
	size := e.mfcc.FFTSize()
	hop := max(size/2, 1)
	mean := make([]float64, e.mfcc.NumOutputs())
	frame := make([]float64, size)

	frames := 0
	for origin := 0; origin == 0 || origin+size <= len(samples); origin += hop {
		clear(frame)
		copy(frame, samples[origin:min(origin+size, len(samples))])

		ceps, err := e.mfcc.Process(frame)
		if err != nil {
			return nil, err
		}
		for k, v := range ceps {
			mean[k] += v
		}
		frames++
	}

	for k := range mean {
		mean[k] /= float64(frames)
	}
	return mean, nil
}

// NewExtractor creates an extractor by name. Only "mfcc" is available;
// constant-Q features are computed inside the segmenter.
func NewExtractor(name string, blocks BlockConfig) (FeatureExtractor, error) {
	switch name {
	case "mfcc":
		return NewCepstralExtractor(blocks)
	default:
		return nil, fmt.Errorf("unknown feature extractor %q", name)
	}
}
