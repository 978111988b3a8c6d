package segmentation

import (
	"github.com/RyanBlaney/sonido-segmenter/algorithms/spectral"
)

// stubTransform returns coefficients from coeffs(call, bin) and counts
// calls.
type stubTransform struct {
	bins      int
	fftLength int
	coeffs    func(call, bin int) complex128
	config    spectral.ConstantQConfig
	calls     int
}

func (t *stubTransform) Bins() int      { return t.bins }
func (t *stubTransform) FFTLength() int { return t.fftLength }

func (t *stubTransform) Process(re, im, cqRe, cqIm []float64) {
	for k := range t.bins {
		c := complex(1, 0)
		if t.coeffs != nil {
			c = t.coeffs(t.calls, k)
		}
		cqRe[k] = real(c)
		cqIm[k] = imag(c)
	}
	t.calls++
}

func (t *stubTransform) factory() TransformFactory {
	return func(config spectral.ConstantQConfig) (ConstantQTransform, error) {
		t.config = config
		return t, nil
	}
}

// stubDecimator keeps every factor-th sample.
type stubDecimator struct {
	factor int
	calls  int
}

func (d *stubDecimator) Factor() int { return d.factor }

func (d *stubDecimator) Process(input []float64) ([]float64, error) {
	d.calls++
	out := make([]float64, len(input)/d.factor)
	for i := range out {
		out[i] = input[i*d.factor]
	}
	return out, nil
}

type stubDecimators struct {
	max     int
	created []*stubDecimator
}

func (p *stubDecimators) MaxFactor() int { return p.max }

func (p *stubDecimators) NewDecimator(inputRate, factor int) (Decimator, error) {
	d := &stubDecimator{factor: factor}
	p.created = append(p.created, d)
	return d, nil
}

func (p *stubDecimators) calls() int {
	n := 0
	for _, d := range p.created {
		n += d.calls
	}
	return n
}

// recordingClassifier returns labels from fn and keeps its inputs.
type recordingClassifier struct {
	fn       func(rows int) []int
	features [][]float64
	params   LabelParams
	calls    int
}

func (c *recordingClassifier) Label(features [][]float64, params LabelParams) ([]int, error) {
	c.calls++
	c.features = features
	c.params = params
	if c.fn != nil {
		return c.fn(len(features)), nil
	}
	return make([]int, len(features)), nil
}

// failingWindow reports the expected size but refuses every frame.
type failingWindow struct {
	size int
	err  error
}

func (w failingWindow) Size() int                    { return w.size }
func (w failingWindow) ApplyInPlace([]float64) error { return w.err }
