package spectral

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/windowing"
)

// Filterbank layout: 13 linearly spaced filters followed by 27 log spaced
// ones, the classic Slaney auditory toolbox arrangement.
const (
	mfccLowestFrequency = 66.6666666
	mfccLinearFilters   = 13
	mfccLinearSpacing   = 66.66666666
	mfccLogFilters      = 27
	mfccLogSpacing      = 1.0711703
)

// MFCCConfig contains parameters for MFCC computation
type MFCCConfig struct {
	SampleRate int            `json:"sample_rate"`
	FFTSize    int            `json:"fft_size"`  // default 2048
	NumCeps    int            `json:"num_ceps"`  // default 19
	LogPower   float64        `json:"log_power"` // default 1.0
	WantC0     bool           `json:"want_c0"`   // default true
	Window     windowing.Type `json:"window"`    // default Hamming
}

// DefaultMFCCConfig returns the standard configuration for a sample rate
func DefaultMFCCConfig(sampleRate int) MFCCConfig {
	return MFCCConfig{
		SampleRate: sampleRate,
		FFTSize:    2048,
		NumCeps:    19,
		LogPower:   1.0,
		WantC0:     true,
		Window:     windowing.Hamming,
	}
}

// MFCC computes Mel-Frequency Cepstral Coefficients
type MFCC struct {
	config       MFCCConfig
	totalFilters int

	window     *windowing.Window
	fft        *FFT
	filterBank [][]float64 // totalFilters x (FFTSize/2+1)
	dctMatrix  [][]float64 // (NumCeps+1) x totalFilters, row 0 is C0
}

// NewMFCC creates an MFCC computer
func NewMFCC(config MFCCConfig) (*MFCC, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", config.SampleRate)
	}
	if config.FFTSize <= 0 {
		return nil, fmt.Errorf("invalid FFT size: %d", config.FFTSize)
	}
	if config.NumCeps <= 0 {
		return nil, fmt.Errorf("invalid cepstral count: %d", config.NumCeps)
	}
	if config.LogPower <= 0 {
		config.LogPower = 1.0
	}

	m := &MFCC{
		config:       config,
		totalFilters: mfccLinearFilters + mfccLogFilters,
		window:       windowing.New(config.Window, config.FFTSize, false),
		fft:          NewFFT(),
	}
	m.createFilterBank()
	m.createDCTMatrix()
	return m, nil
}

func (m *MFCC) createFilterBank() {
	freqs := make([]float64, m.totalFilters+2)
	for i := range mfccLinearFilters {
		freqs[i] = mfccLowestFrequency + float64(i)*mfccLinearSpacing
	}
	for i := mfccLinearFilters; i < len(freqs); i++ {
		freqs[i] = freqs[mfccLinearFilters-1] * math.Pow(mfccLogSpacing, float64(i-mfccLinearFilters+1))
	}

	bins := m.config.FFTSize/2 + 1
	m.filterBank = make([][]float64, m.totalFilters)
	for i := range m.totalFilters {
		lower, center, upper := freqs[i], freqs[i+1], freqs[i+2]
		height := 2.0 / (upper - lower)

		row := make([]float64, bins)
		for j := range bins {
			f := float64(j) * float64(m.config.SampleRate) / float64(m.config.FFTSize)
			switch {
			case f >= lower && f < center:
				row[j] = height * (f - lower) / (center - lower)
			case f >= center && f < upper:
				row[j] = height * (upper - f) / (upper - center)
			}
		}
		m.filterBank[i] = row
	}
}

func (m *MFCC) createDCTMatrix() {
	n := float64(m.totalFilters)
	scale := math.Sqrt(2.0 / n)

	m.dctMatrix = make([][]float64, m.config.NumCeps+1)
	for i := range m.dctMatrix {
		row := make([]float64, m.totalFilters)
		for j := range row {
			row[j] = scale * math.Cos(float64(i)*(float64(j)+0.5)*math.Pi/n)
		}
		if i == 0 {
			for j := range row {
				row[j] /= math.Sqrt2
			}
		}
		m.dctMatrix[i] = row
	}
}

// FFTSize returns the frame length Process expects
func (m *MFCC) FFTSize() int {
	return m.config.FFTSize
}

// NumOutputs returns NumCeps, plus one when C0 is requested
func (m *MFCC) NumOutputs() int {
	if m.config.WantC0 {
		return m.config.NumCeps + 1
	}
	return m.config.NumCeps
}

// Process computes coefficients for one time-domain frame of FFTSize samples.
// The frame is not modified.
func (m *MFCC) Process(frame []float64) ([]float64, error) {
	if len(frame) != m.config.FFTSize {
		return nil, fmt.Errorf("frame length (%d) doesn't match FFT size (%d)", len(frame), m.config.FFTSize)
	}

	windowed := m.window.Apply(frame)
	re := make([]float64, len(windowed))
	im := make([]float64, len(windowed))
	if err := m.fft.Forward(windowed, re, im); err != nil {
		return nil, err
	}
	return m.ProcessSpectrum(re[:m.config.FFTSize/2+1], im[:m.config.FFTSize/2+1])
}

// ProcessSpectrum computes coefficients from the non-negative half of a
// spectrum (FFTSize/2+1 bins).
func (m *MFCC) ProcessSpectrum(re, im []float64) ([]float64, error) {
	bins := m.config.FFTSize/2 + 1
	if len(re) < bins || len(im) < bins {
		return nil, fmt.Errorf("spectrum length (%d) shorter than %d bins", min(len(re), len(im)), bins)
	}

	ear := make([]float64, m.totalFilters)
	for i, weights := range m.filterBank {
		sum := 0.0
		for j := range bins {
			sum += math.Hypot(re[j], im[j]) * weights[j]
		}
		if m.config.LogPower != 1.0 {
			sum = math.Pow(sum, m.config.LogPower)
		}
		if sum > 0 {
			ear[i] = math.Log10(sum)
		}
	}

	first := 1
	if m.config.WantC0 {
		first = 0
	}
	ceps := make([]float64, 0, m.NumOutputs())
	for i := first; i <= m.config.NumCeps; i++ {
		sum := 0.0
		for j, v := range ear {
			sum += v * m.dctMatrix[i][j]
		}
		ceps = append(ceps, sum)
	}
	return ceps, nil
}
