package spectral

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/windowing"
)

func testConstantQ(t *testing.T) *ConstantQ {
	t.Helper()

	cq, err := NewConstantQ(ConstantQConfig{
		SampleRate:    8000,
		MinFreq:       100,
		MaxFreq:       1600,
		BinsPerOctave: 12,
	})
	if err != nil {
		t.Fatalf("NewConstantQ() error = %v", err)
	}
	return cq
}

func TestConstantQGeometry(t *testing.T) {
	t.Parallel()

	cq := testConstantQ(t)
	if cq.Bins() != 48 {
		t.Fatalf("Bins() = %d, want 48", cq.Bins())
	}
	// ceil(Q * 8000 / 100) = 1346 -> 2048
	if cq.FFTLength() != 2048 {
		t.Fatalf("FFTLength() = %d, want 2048", cq.FFTLength())
	}
	if cq.KernelSize() == 0 {
		t.Fatal("KernelSize() = 0, want retained entries")
	}
	freqs := cq.Frequencies()
	if math.Abs(freqs[12]-200) > 1e-9 {
		t.Fatalf("Frequencies()[12] = %v, want 200", freqs[12])
	}
}

func TestConstantQPeaksAtToneBin(t *testing.T) {
	t.Parallel()

	cq := testConstantQ(t)
	n := cq.FFTLength()
	const target = 24 // 400 Hz

	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * 400 * float64(i) / 8000)
	}
	HalfSwap(frame)
	if err := windowing.NewHamming(n, false).ApplyInPlace(frame); err != nil {
		t.Fatalf("ApplyInPlace() error = %v", err)
	}

	re := make([]float64, n)
	im := make([]float64, n)
	if err := NewFFT().Forward(frame, re, im); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	cqRe := make([]float64, cq.Bins())
	cqIm := make([]float64, cq.Bins())
	cq.Process(re, im, cqRe, cqIm)

	best, bestMag := -1, -1.0
	for k := range cqRe {
		if mag := math.Hypot(cqRe[k], cqIm[k]); mag > bestMag {
			best, bestMag = k, mag
		}
	}
	if best < target-1 || best > target+1 {
		t.Fatalf("peak bin = %d, want %d±1", best, target)
	}
}

func TestConstantQConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []ConstantQConfig{
		{SampleRate: 0, MinFreq: 60, MaxFreq: 1000, BinsPerOctave: 8},
		{SampleRate: 8000, MinFreq: 60, MaxFreq: 1000, BinsPerOctave: 0},
		{SampleRate: 8000, MinFreq: 1000, MaxFreq: 60, BinsPerOctave: 8},
	}
	for _, cfg := range tests {
		if _, err := NewConstantQ(cfg); err == nil {
			t.Errorf("NewConstantQ(%+v) error = nil", cfg)
		}
	}
}
