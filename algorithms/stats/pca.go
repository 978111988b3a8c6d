package stats

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCAResult holds a projection onto the leading principal components
type PCAResult struct {
	Projected  [][]float64 `json:"projected"`  // rows x components
	Variances  []float64   `json:"variances"`  // variance along each kept component
	Components int         `json:"components"` // number of kept components
}

// PCA projects rows onto at most maxComponents principal components.
// The number kept is also bounded by the row count and the column count.
func PCA(data [][]float64, maxComponents int) (*PCAResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	if maxComponents <= 0 {
		return nil, fmt.Errorf("component count must be positive, got %d", maxComponents)
	}

	rows, cols := len(data), len(data[0])
	x := mat.NewDense(rows, cols, nil)
	for i, row := range data {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		x.SetRow(i, row)
	}

	keep := min(maxComponents, cols, rows)

	// A single row has no spread to decompose.
	if rows == 1 {
		return &PCAResult{
			Projected:  [][]float64{make([]float64, keep)},
			Variances:  make([]float64, keep),
			Components: keep,
		}, nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, available := vecs.Dims()
	keep = min(keep, available)
	variances := pc.VarsTo(nil)

	means := make([]float64, cols)
	for j := range cols {
		means[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	centred := mat.NewDense(rows, cols, nil)
	centred.Apply(func(_, j int, v float64) float64 { return v - means[j] }, x)

	var proj mat.Dense
	proj.Mul(centred, vecs.Slice(0, cols, 0, keep))

	result := &PCAResult{
		Projected:  make([][]float64, rows),
		Variances:  variances[:keep],
		Components: keep,
	}
	for i := range rows {
		result.Projected[i] = mat.Row(nil, i, &proj)
	}
	return result, nil
}
