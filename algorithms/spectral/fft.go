package spectral

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the spectrum of a real frame.
// mjibson/go-dsp handles non power-of-two sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Forward transforms a real frame into separate real and imaginary parts.
// re and im must be at least len(frame) long.
func (f *FFT) Forward(frame, re, im []float64) error {
	if len(re) < len(frame) || len(im) < len(frame) {
		return fmt.Errorf("output buffers (%d, %d) shorter than frame (%d)", len(re), len(im), len(frame))
	}

	spectrum := f.Compute(frame)
	for i, c := range spectrum {
		re[i] = real(c)
		im[i] = imag(c)
	}
	return nil
}

// Complex computes the forward transform of a complex sequence
func (f *FFT) Complex(x []complex128) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFT(x)
}

// HalfSwap rotates a frame by half its length in place, exchanging the
// first and second halves. Odd lengths rotate by len/2.
func HalfSwap(frame []float64) {
	n := len(frame)
	half := n / 2
	if half == 0 {
		return
	}
	if n%2 == 0 {
		for i := range half {
			frame[i], frame[i+half] = frame[i+half], frame[i]
		}
		return
	}
	rotated := make([]float64, n)
	for i := range n {
		rotated[i] = frame[(i+half)%n]
	}
	copy(frame, rotated)
}
