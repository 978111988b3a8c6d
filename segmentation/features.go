package segmentation

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/spectral"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/windowing"
	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// ExtractFeatures appends one row to the feature matrix: the mean
// constant-Q magnitude over half-overlapping FFT frames of samples (after
// decimation). The first frame is zero-padded if needed; later frames must
// fit entirely inside the buffer.
//
// On ErrNotInitialised or ErrInsufficientSamples the condition is logged
// and the matrix is left unchanged.
func (s *Segmenter) ExtractFeatures(samples []float64) error {
	logger := s.logger.WithFields(logging.Fields{
		"function": "ExtractFeatures",
		"samples":  len(samples),
	})

	if s.constq == nil {
		err := fmt.Errorf("%w: no constant-Q frontend for feature type %s", ErrNotInitialised, s.featureType)
		logger.Error(err, "Cannot extract features")
		return err
	}
	if window := s.WindowSize(); len(samples) < window {
		err := fmt.Errorf("%w: %d < %d", ErrInsufficientSamples, len(samples), window)
		logger.Error(err, "Cannot extract features")
		return err
	}

	fftLen := s.constq.FFTLength()
	if s.window == nil || s.window.Size() != fftLen {
		s.window = windowing.NewHamming(fftLen, false)
	}

	source := samples
	if s.decimator != nil {
		decimated, err := s.decimator.Process(samples)
		if err != nil {
			logger.Error(err, "Failed to decimate block")
			return fmt.Errorf("failed to decimate block: %w", err)
		}
		source = decimated
	}
	count := len(source)

	frame := make([]float64, fftLen)
	re := make([]float64, fftLen)
	im := make([]float64, fftLen)
	cqRe := make([]float64, s.ncoeff)
	cqIm := make([]float64, s.ncoeff)
	row := make([]float64, s.ncoeff)

	hop := max(fftLen/2, 1)
	frames := 0
	for origin := 0; origin == 0 || origin+fftLen <= count; origin += hop {
		clear(frame)
		if origin < count {
			copy(frame, source[origin:min(origin+fftLen, count)])
		}

		spectral.HalfSwap(frame)
		if err := s.window.ApplyInPlace(frame); err != nil {
			logger.Error(err, "Failed to window frame", logging.Fields{"origin": origin})
			return fmt.Errorf("failed to window frame: %w", err)
		}
		if err := s.fft.Forward(frame, re, im); err != nil {
			logger.Error(err, "Failed to transform frame", logging.Fields{"origin": origin})
			return fmt.Errorf("failed to transform frame: %w", err)
		}
		s.constq.Process(re, im, cqRe, cqIm)

		for k := range row {
			row[k] += math.Hypot(cqRe[k], cqIm[k])
		}
		frames++
	}

	for k := range row {
		row[k] /= float64(frames)
	}
	s.features = append(s.features, row)

	logger.Debug("Feature row extracted", logging.Fields{
		"frames": frames,
		"rows":   len(s.features),
	})
	return nil
}

// ExtractSignal walks a whole signal in blocks of WindowSize() samples
// stepping by HopSize(), so row i starts at sample i*HopSize(). It returns
// the number of rows appended. progress, if set, is called after each row.
func (s *Segmenter) ExtractSignal(samples []float64, progress func(done, total int)) (int, error) {
	logger := s.logger.WithFields(logging.Fields{
		"function": "ExtractSignal",
		"samples":  len(samples),
	})

	window, hop := s.WindowSize(), s.HopSize()
	if s.constq == nil || hop < 1 {
		err := fmt.Errorf("%w: call Initialise with a constant-Q configuration first", ErrNotInitialised)
		logger.Error(err, "Cannot extract signal")
		return 0, err
	}
	if len(samples) < window {
		err := fmt.Errorf("%w: %d < %d", ErrInsufficientSamples, len(samples), window)
		logger.Error(err, "Cannot extract signal")
		return 0, err
	}

	total := (len(samples)-window)/hop + 1
	for i := range total {
		start := i * hop
		if err := s.ExtractFeatures(samples[start : start+window]); err != nil {
			return i, err
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	logger.Info("Signal extracted", logging.Fields{
		"rows":        total,
		"window_size": window,
		"hop_size":    hop,
	})
	return total, nil
}
