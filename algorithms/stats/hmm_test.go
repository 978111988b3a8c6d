package stats

import (
	"math"
	"testing"
)

func TestGaussianHMMRecoversRegimes(t *testing.T) {
	t.Parallel()

	var data [][]float64
	for i := range 60 {
		base := 0.0
		if i >= 30 {
			base = 5.0
		}
		data = append(data, []float64{base + 0.1*math.Sin(float64(i)), base - 0.1*math.Cos(float64(i))})
	}

	hmm := NewGaussianHMM(DefaultHMMParams(2))
	path, err := hmm.Fit(data)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if len(path) != len(data) {
		t.Fatalf("len(path) = %d, want %d", len(path), len(data))
	}
	for i := range 30 {
		if path[i] != path[0] {
			t.Fatalf("path[%d] = %d, want %d", i, path[i], path[0])
		}
		if path[30+i] != path[30] {
			t.Fatalf("path[%d] = %d, want %d", 30+i, path[30+i], path[30])
		}
	}
	if path[0] == path[30] {
		t.Fatal("regimes share a state")
	}
}

func TestGaussianHMMCapsStates(t *testing.T) {
	t.Parallel()

	hmm := NewGaussianHMM(DefaultHMMParams(40))
	path, err := hmm.Fit([][]float64{{1}, {2}, {3}})
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if hmm.States() != 3 {
		t.Fatalf("States() = %d, want 3", hmm.States())
	}
	for i, s := range path {
		if s < 0 || s >= 3 {
			t.Fatalf("path[%d] = %d out of range", i, s)
		}
	}
}

func TestStateHistograms(t *testing.T) {
	t.Parallel()

	path := []int{0, 0, 1, 1}
	h := StateHistograms(path, 2, 2)
	if len(h) != 4 {
		t.Fatalf("len = %d, want 4", len(h))
	}
	for i, row := range h {
		sum := row[0] + row[1]
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("row %d sums to %v, want 1", i, sum)
		}
	}
	if h[0][0] != 1 {
		t.Fatalf("h[0] = %v, want [1 0]", h[0])
	}
	if h[3][1] != 1 {
		t.Fatalf("h[3] = %v, want [0 1]", h[3])
	}
}

func TestPCAReducesDimensions(t *testing.T) {
	t.Parallel()

	var data [][]float64
	for i := range 20 {
		x := float64(i)
		data = append(data, []float64{x, 2 * x, 0.5 * x, math.Sin(x)})
	}

	res, err := PCA(data, 2)
	if err != nil {
		t.Fatalf("PCA() error = %v", err)
	}
	if res.Components != 2 || len(res.Projected) != 20 || len(res.Projected[0]) != 2 {
		t.Fatalf("PCA() shape = %d x %d (components %d), want 20 x 2", len(res.Projected), len(res.Projected[0]), res.Components)
	}
	if res.Variances[0] < res.Variances[1] {
		t.Fatalf("Variances = %v, want descending", res.Variances)
	}

	single, err := PCA([][]float64{{1, 2, 3}}, 20)
	if err != nil {
		t.Fatalf("PCA(single row) error = %v", err)
	}
	if single.Components != 1 {
		t.Fatalf("single.Components = %d, want 1", single.Components)
	}
}
