package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// AmplitudeToDB converts a linear amplitude to dBFS, clamping at floor
// (also linear) so silence maps to a finite level.
func AmplitudeToDB(amplitude, floor float64) float64 {
	return 20.0 * math.Log10(math.Max(amplitude, floor))
}

// IsPowerOfTwo checks if n is a power of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
