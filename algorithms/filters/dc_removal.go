package filters

import (
	"fmt"
	"math"
)

// DCBlocker is a one-pole high-pass filter, y[n] = x[n] - x[n-1] + R*y[n-1].
// It runs ahead of analysis so constant offsets do not leak into the
// lowest constant-Q bins.
type DCBlocker struct {
	pole float64
	x1   float64
	y1   float64
}

// DefaultDCCutoff is the cutoff in Hz used when the caller has no preference
const DefaultDCCutoff = 10.0

// NewDCBlocker creates a blocker with a -3 dB point near cutoff Hz, using
// R = 1 - 2*pi*fc/fs clamped to (0, 1).
func NewDCBlocker(sampleRate int, cutoff float64) (*DCBlocker, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if cutoff <= 0 || cutoff >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff %.2f Hz outside (0, %d)", cutoff, sampleRate/2)
	}

	pole := 1.0 - 2.0*math.Pi*cutoff/float64(sampleRate)
	pole = math.Min(math.Max(pole, 0.001), 0.999)
	return &DCBlocker{pole: pole}, nil
}

// Pole returns R
func (dc *DCBlocker) Pole() float64 {
	return dc.pole
}

// Process filters a buffer, carrying state across calls
func (dc *DCBlocker) Process(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, x := range input {
		y := x - dc.x1 + dc.pole*dc.y1
		dc.x1, dc.y1 = x, y
		output[i] = y
	}
	return output
}

// Reset clears the filter history
func (dc *DCBlocker) Reset() {
	dc.x1, dc.y1 = 0, 0
}
