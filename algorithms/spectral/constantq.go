package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/common"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/windowing"
)

// DefaultKernelThreshold drops kernel entries whose squared magnitude is at
// or below this value.
const DefaultKernelThreshold = 0.0054

// ConstantQConfig parameterises a constant-Q transform
type ConstantQConfig struct {
	SampleRate    float64 `json:"sample_rate"`
	MinFreq       float64 `json:"min_freq"`
	MaxFreq       float64 `json:"max_freq"`
	BinsPerOctave int     `json:"bins_per_octave"`
	Threshold     float64 `json:"threshold"`
}

// Validate checks the frequency range against the sample rate
func (c ConstantQConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %v", c.SampleRate)
	}
	if c.BinsPerOctave <= 0 {
		return fmt.Errorf("bins per octave must be positive, got %d", c.BinsPerOctave)
	}
	if c.MinFreq <= 0 || c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("invalid frequency range [%v, %v]", c.MinFreq, c.MaxFreq)
	}
	return nil
}

// kernelEntry is one non-zero element of the sparse spectral kernel.
type kernelEntry struct {
	row int // FFT bin
	col int // constant-Q bin
	val complex128
}

// ConstantQ projects an FFT spectrum onto logarithmically spaced bins
// f_k = fmin * 2^(k/bpo) using a precomputed sparse kernel.
//
// The kernel for each bin is a Hamming-weighted complex exponential whose
// length is inversely proportional to its frequency, centred in an FFT
// buffer, rotated by half and transformed. Entries below the threshold are
// discarded and the rest are stored conjugated and scaled by 1/fftLength, so
// Process reduces to a sparse complex dot product per bin.
type ConstantQ struct {
	config    ConstantQConfig
	q         float64
	bins      int
	fftLength int
	freqs     []float64
	kernel    []kernelEntry
}

// NewConstantQ builds the sparse kernel for the given configuration
func NewConstantQ(config ConstantQConfig) (*ConstantQ, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultKernelThreshold
	}

	bpo := float64(config.BinsPerOctave)
	cq := &ConstantQ{
		config: config,
		q:      1.0 / (math.Pow(2, 1.0/bpo) - 1),
		bins:   int(math.Ceil(bpo * math.Log2(config.MaxFreq/config.MinFreq))),
	}
	cq.fftLength = common.NextPowerOfTwo(int(math.Ceil(cq.q * config.SampleRate / config.MinFreq)))

	cq.freqs = make([]float64, cq.bins)
	for k := range cq.bins {
		cq.freqs[k] = config.MinFreq * math.Pow(2, float64(k)/bpo)
	}

	cq.buildKernel()
	return cq, nil
}

func (cq *ConstantQ) buildKernel() {
	f := NewFFT()
	n := cq.fftLength
	scale := 1.0 / float64(n)
	buf := make([]complex128, n)

	for k, freq := range cq.freqs {
		length := int(math.Ceil(cq.q * cq.config.SampleRate / freq))
		if length > n {
			length = n
		}
		win := windowing.NewHamming(length, false).Coefficients()

		clear(buf)
		origin := n/2 - length/2
		for i := range length {
			phase := 2 * math.Pi * cq.q * float64(i) / float64(length)
			buf[origin+i] = complex(win[i]/float64(length), 0) * cmplx.Exp(complex(0, phase))
		}
		halfSwapComplex(buf)

		spectrum := f.Complex(buf)
		for j, v := range spectrum {
			mag2 := real(v)*real(v) + imag(v)*imag(v)
			if mag2 <= cq.config.Threshold {
				continue
			}
			cq.kernel = append(cq.kernel, kernelEntry{
				row: j,
				col: k,
				val: cmplx.Conj(v) * complex(scale, 0),
			})
		}
	}
}

func halfSwapComplex(buf []complex128) {
	half := len(buf) / 2
	for i := range half {
		buf[i], buf[i+half] = buf[i+half], buf[i]
	}
}

// Process accumulates the projection of one spectrum (re, im of length
// FFTLength) into cqRe and cqIm (length Bins), which are overwritten.
func (cq *ConstantQ) Process(re, im, cqRe, cqIm []float64) {
	clear(cqRe[:cq.bins])
	clear(cqIm[:cq.bins])

	for _, e := range cq.kernel {
		sr, si := re[e.row], im[e.row]
		kr, ki := real(e.val), imag(e.val)
		cqRe[e.col] += sr*kr - si*ki
		cqIm[e.col] += sr*ki + si*kr
	}
}

// Bins returns the number of constant-Q bins
func (cq *ConstantQ) Bins() int {
	return cq.bins
}

// FFTLength returns the frame length the kernel expects
func (cq *ConstantQ) FFTLength() int {
	return cq.fftLength
}

// Frequencies returns the centre frequency of every bin
func (cq *ConstantQ) Frequencies() []float64 {
	out := make([]float64, len(cq.freqs))
	copy(out, cq.freqs)
	return out
}

// Q returns the quality factor
func (cq *ConstantQ) Q() float64 {
	return cq.q
}

// KernelSize returns the number of retained kernel entries
func (cq *ConstantQ) KernelSize() int {
	return len(cq.kernel)
}
