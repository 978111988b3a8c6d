package filters

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/common"
)

// HighestSupportedFactor is the largest integer factor a Decimator accepts.
const HighestSupportedFactor = 8

// calibrationBlocks is where the impulse sits, in output samples, when the
// resampler delay is measured.
const calibrationBlocks = 512

// Decimator downsamples a mono signal by an integer factor with an
// anti-aliasing lowpass. Each Process call treats its input as a complete,
// independent buffer, and out[i] lines up with input[i*factor].
type Decimator struct {
	inputRate int
	factor    int
	delay     int // resampler delay in output samples
}

// NewDecimator creates a decimator for the given input rate and factor
func NewDecimator(inputRate, factor int) (*Decimator, error) {
	if inputRate <= 0 {
		return nil, fmt.Errorf("invalid input rate: %d", inputRate)
	}
	if factor < 1 || factor > HighestSupportedFactor {
		return nil, fmt.Errorf("decimation factor %d outside [1, %d]", factor, HighestSupportedFactor)
	}
	if !common.IsPowerOfTwo(factor) {
		return nil, fmt.Errorf("decimation factor %d is not a power of two", factor)
	}

	d := &Decimator{
		inputRate: inputRate,
		factor:    factor,
	}
	if factor > 1 {
		delay, err := d.measureDelay()
		if err != nil {
			return nil, err
		}
		d.delay = delay
	}
	return d, nil
}

func (d *Decimator) newResampler() (resampling.Resampler, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(d.inputRate),
		OutputRate: float64(d.inputRate) / float64(d.factor),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	return r, nil
}

// run resamples input and drains the resampler
func run(r resampling.Resampler, input []float64) ([]float64, error) {
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("failed to resample: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("failed to flush resampler: %w", err)
	}
	return append(output, tail...), nil
}

// measureDelay pushes an impulse through a fresh resampler and returns how
// many output samples its peak arrives late.
func (d *Decimator) measureDelay() (int, error) {
	r, err := d.newResampler()
	if err != nil {
		return 0, err
	}
	guard := max(r.GetLatency(), calibrationBlocks)

	impulse := make([]float64, (calibrationBlocks+2*guard)*d.factor)
	impulse[calibrationBlocks*d.factor] = 1
	output, err := run(r, impulse)
	if err != nil {
		return 0, err
	}

	peak := 0
	for i, v := range output {
		if math.Abs(v) > math.Abs(output[peak]) {
			peak = i
		}
	}
	return max(peak-calibrationBlocks, 0), nil
}

// Factor returns the decimation factor
func (d *Decimator) Factor() int {
	return d.factor
}

// OutputRate returns inputRate / factor
func (d *Decimator) OutputRate() int {
	return d.inputRate / d.factor
}

// Delay returns the resampler delay Process compensates, in output samples
func (d *Decimator) Delay() int {
	return d.delay
}

// Process returns exactly len(input)/factor samples. The input is padded
// with enough zeros to push the delayed tail through the filter, and the
// first Delay() output samples are dropped.
func (d *Decimator) Process(input []float64) ([]float64, error) {
	n := len(input) / d.factor
	if d.factor == 1 {
		out := make([]float64, len(input))
		copy(out, input)
		return out, nil
	}
	if n == 0 {
		return []float64{}, nil
	}

	r, err := d.newResampler()
	if err != nil {
		return nil, err
	}
	pad := (max(d.delay, r.GetLatency()) + calibrationBlocks) * d.factor
	padded := make([]float64, len(input)+pad)
	copy(padded, input)

	output, err := run(r, padded)
	if err != nil {
		return nil, err
	}

	result := make([]float64, n)
	if d.delay < len(output) {
		copy(result, output[d.delay:])
	}
	return result, nil
}

// Decimators creates Decimator instances and reports their capability.
type Decimators struct{}

// MaxFactor returns HighestSupportedFactor
func (Decimators) MaxFactor() int {
	return HighestSupportedFactor
}

// New creates a Decimator
func (Decimators) New(inputRate, factor int) (*Decimator, error) {
	return NewDecimator(inputRate, factor)
}
