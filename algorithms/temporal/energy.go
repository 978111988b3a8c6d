package temporal

import (
	"github.com/RyanBlaney/sonido-segmenter/algorithms/common"
)

// DefaultFloor is the amplitude treated as silence, -120 dBFS
const DefaultFloor = 1e-6

// Energy measures signal level over frames and spans
type Energy struct {
	floor float64
}

// NewEnergy creates an energy calculator. floor <= 0 selects DefaultFloor.
func NewEnergy(floor float64) *Energy {
	if floor <= 0 {
		floor = DefaultFloor
	}
	return &Energy{floor: floor}
}

// ShortTimeRMS returns the RMS of each frame of frameSize samples stepping
// by hopSize. Frames must fit inside signal.
func (e *Energy) ShortTimeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if frameSize <= 0 || hopSize <= 0 || len(signal) < frameSize {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	energies := make([]float64, numFrames)
	for i := range numFrames {
		start := i * hopSize
		energies[i] = common.RMS(signal[start : start+frameSize])
	}
	return energies
}

// SpanLevel returns the RMS level of signal[start:end] in dBFS. The span
// is clipped to the signal; an empty span reads as the floor.
func (e *Energy) SpanLevel(signal []float64, start, end int) float64 {
	start = max(start, 0)
	end = min(end, len(signal))
	if start >= end {
		return common.AmplitudeToDB(0, e.floor)
	}
	return common.AmplitudeToDB(common.RMS(signal[start:end]), e.floor)
}
