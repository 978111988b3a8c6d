package filters

import (
	"math"
	"testing"
)

func TestNewDecimatorRejectsFactor(t *testing.T) {
	t.Parallel()

	for _, factor := range []int{0, 3, 6, 16} {
		if _, err := NewDecimator(44100, factor); err == nil {
			t.Errorf("NewDecimator(44100, %d) error = nil", factor)
		}
	}
	if _, err := NewDecimator(0, 2); err == nil {
		t.Error("NewDecimator(0, 2) error = nil")
	}
}

func TestDecimatorOutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		factor int
		n      int
	}{
		{2, 1000},
		{4, 1001},
		{8, 44100},
		{1, 37},
		{4, 3},
	}
	for _, tt := range tests {
		d, err := NewDecimator(44100, tt.factor)
		if err != nil {
			t.Fatalf("NewDecimator() error = %v", err)
		}
		in := make([]float64, tt.n)
		for i := range in {
			in[i] = math.Sin(2 * math.Pi * 220 * float64(i) / 44100)
		}
		out, err := d.Process(in)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if want := tt.n / tt.factor; len(out) != want {
			t.Errorf("factor %d: len(Process(%d)) = %d, want %d", tt.factor, tt.n, len(out), want)
		}
	}
}

func TestDecimatorsCapability(t *testing.T) {
	t.Parallel()

	var p Decimators
	if p.MaxFactor() != HighestSupportedFactor {
		t.Fatalf("MaxFactor() = %d, want %d", p.MaxFactor(), HighestSupportedFactor)
	}
	d, err := p.New(48000, 4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if d.Factor() != 4 || d.OutputRate() != 12000 {
		t.Fatalf("Factor(), OutputRate() = %d, %d, want 4, 12000", d.Factor(), d.OutputRate())
	}
}

func TestDecimatorOutputTracksInput(t *testing.T) {
	t.Parallel()

	const rate = 44100
	d, err := NewDecimator(rate, 4)
	if err != nil {
		t.Fatalf("NewDecimator() error = %v", err)
	}

	in := make([]float64, 26460)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 100 * float64(i) / rate)
	}
	out, err := d.Process(in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != len(in)/4 {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in)/4)
	}

	// away from the edges out[i] is the band-limited in[4i]
	for i := 64; i < len(out)-64; i++ {
		if diff := math.Abs(out[i] - in[4*i]); diff > 0.01 {
			t.Fatalf("out[%d] = %.4f, want %.4f (delay %d)", i, out[i], in[4*i], d.Delay())
		}
	}

	// the last samples still carry signal
	peak := 0.0
	for _, v := range out[len(out)-64:] {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak < 0.3 {
		t.Fatalf("tail peak = %.4f, want signal up to the end", peak)
	}
}

func TestDecimatorShortBlock(t *testing.T) {
	t.Parallel()

	d, err := NewDecimator(44100, 4)
	if err != nil {
		t.Fatalf("NewDecimator() error = %v", err)
	}
	in := make([]float64, 200)
	for i := range in {
		in[i] = 0.5
	}
	out, err := d.Process(in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 50 {
		t.Fatalf("len(out) = %d, want 50", len(out))
	}
	if mid := out[25]; mid < 0.1 {
		t.Fatalf("out[25] = %.4f, want close to 0.5", mid)
	}
}
