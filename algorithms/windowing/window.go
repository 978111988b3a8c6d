package windowing

import (
	"fmt"
	"math"
)

// Type identifies a window shape
type Type int

const (
	Rectangular Type = iota
	Hamming
	Hann
	Blackman
	Bartlett
)

func (t Type) String() string {
	switch t {
	case Rectangular:
		return "rectangular"
	case Hamming:
		return "hamming"
	case Hann:
		return "hann"
	case Blackman:
		return "blackman"
	case Bartlett:
		return "bartlett"
	default:
		return "unknown"
	}
}

// ParseType maps a window name to its Type.
func ParseType(name string) (Type, error) {
	for _, t := range []Type{Rectangular, Hamming, Hann, Blackman, Bartlett} {
		if t.String() == name {
			return t, nil
		}
	}
	return Rectangular, fmt.Errorf("unknown window type %q", name)
}

// Window holds precomputed apodization coefficients for a fixed frame size.
//
// A periodic window (symmetric == false) divides by size rather than size-1,
// which is the form wanted ahead of an FFT.
type Window struct {
	kind         Type
	size         int
	symmetric    bool
	coefficients []float64
}

// New creates a window of the given shape and size
func New(kind Type, size int, symmetric bool) *Window {
	w := &Window{
		kind:      kind,
		size:      size,
		symmetric: symmetric,
	}
	w.generate()
	return w
}

// NewHamming creates a Hamming window
func NewHamming(size int, symmetric bool) *Window {
	return New(Hamming, size, symmetric)
}

func (w *Window) generate() {
	w.coefficients = make([]float64, w.size)
	if w.size == 0 {
		return
	}
	if w.size == 1 {
		w.coefficients[0] = 1
		return
	}

	denominator := float64(w.size)
	if w.symmetric {
		denominator = float64(w.size - 1)
	}

	for i := range w.size {
		phase := 2 * math.Pi * float64(i) / denominator
		switch w.kind {
		case Hamming:
			w.coefficients[i] = 0.54 - 0.46*math.Cos(phase)
		case Hann:
			w.coefficients[i] = 0.5 - 0.5*math.Cos(phase)
		case Blackman:
			w.coefficients[i] = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
		case Bartlett:
			w.coefficients[i] = 1 - math.Abs(2*float64(i)/denominator-1)
		default:
			w.coefficients[i] = 1
		}
	}
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) []float64 {
	if len(signal) != w.size {
		return nil
	}

	windowed := make([]float64, w.size)
	for i := range w.size {
		windowed[i] = signal[i] * w.coefficients[i]
	}

	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i := range w.size {
		signal[i] *= w.coefficients[i]
	}

	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Size returns the window size
func (w *Window) Size() int {
	return w.size
}

// Type returns the window shape
func (w *Window) Type() Type {
	return w.kind
}
