package stats

import (
	"fmt"
	"math"
	"slices"
)

// HMMParams contains parameters for Gaussian HMM training
type HMMParams struct {
	States         int     `json:"states"`
	MaxIterations  int     `json:"max_iterations"`
	SelfTransition float64 `json:"self_transition"` // initial diagonal of the transition matrix
	VarianceFloor  float64 `json:"variance_floor"`
	RandomSeed     int64   `json:"random_seed"`
}

// DefaultHMMParams returns parameters for an n-state model
func DefaultHMMParams(states int) HMMParams {
	return HMMParams{
		States:         states,
		MaxIterations:  20,
		SelfTransition: 0.9,
		VarianceFloor:  1e-3,
		RandomSeed:     42,
	}
}

// GaussianHMM is a hidden Markov model with diagonal-covariance Gaussian
// emissions, trained by Viterbi re-estimation from a k-means start.
type GaussianHMM struct {
	params   HMMParams
	states   int
	dim      int
	means    [][]float64
	vars     [][]float64
	logTrans [][]float64
	logInit  []float64
}

// NewGaussianHMM creates an untrained model
func NewGaussianHMM(params HMMParams) *GaussianHMM {
	if params.MaxIterations <= 0 {
		params.MaxIterations = 20
	}
	if params.VarianceFloor <= 0 {
		params.VarianceFloor = 1e-3
	}
	if params.SelfTransition <= 0 || params.SelfTransition >= 1 {
		params.SelfTransition = 0.9
	}
	return &GaussianHMM{params: params}
}

// States returns the number of states actually used, which is capped at
// the number of training frames.
func (h *GaussianHMM) States() int {
	return h.states
}

// Fit trains the model on a sequence of frames and returns the most likely
// state path under the final parameters.
func (h *GaussianHMM) Fit(data [][]float64) ([]int, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	if h.params.States <= 0 {
		return nil, fmt.Errorf("state count must be positive, got %d", h.params.States)
	}

	h.states = min(h.params.States, len(data))
	h.dim = len(data[0])

	init := DefaultClusteringParams(h.states)
	init.RandomSeed = h.params.RandomSeed
	km, err := NewClustering(init).KMeans(data)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise states: %w", err)
	}

	h.initTransitions()
	h.means = make([][]float64, h.states)
	h.vars = make([][]float64, h.states)
	for s := range h.states {
		h.means[s] = make([]float64, h.dim)
		h.vars[s] = make([]float64, h.dim)
		for d := range h.vars[s] {
			h.vars[s][d] = 1
		}
	}
	h.estimateEmissions(data, km.Labels)

	path := km.Labels
	for range h.params.MaxIterations {
		next := h.Viterbi(data)
		if slices.Equal(next, path) {
			break
		}
		path = next
		h.estimateEmissions(data, path)
		h.estimateTransitions(path)
	}
	return h.Viterbi(data), nil
}

func (h *GaussianHMM) initTransitions() {
	h.logInit = make([]float64, h.states)
	h.logTrans = make([][]float64, h.states)
	for i := range h.states {
		h.logInit[i] = -math.Log(float64(h.states))
		h.logTrans[i] = make([]float64, h.states)
		for j := range h.states {
			switch {
			case h.states == 1:
				h.logTrans[i][j] = 0
			case i == j:
				h.logTrans[i][j] = math.Log(h.params.SelfTransition)
			default:
				h.logTrans[i][j] = math.Log((1 - h.params.SelfTransition) / float64(h.states-1))
			}
		}
	}
}

// estimateEmissions sets per-state means and variances from a hard
// assignment. States with no frames keep their previous parameters.
func (h *GaussianHMM) estimateEmissions(data [][]float64, path []int) {
	counts := make([]int, h.states)
	sums := make([][]float64, h.states)
	sqs := make([][]float64, h.states)
	for s := range h.states {
		sums[s] = make([]float64, h.dim)
		sqs[s] = make([]float64, h.dim)
	}

	for t, x := range data {
		s := path[t]
		counts[s]++
		for d, v := range x {
			sums[s][d] += v
			sqs[s][d] += v * v
		}
	}

	for s := range h.states {
		if counts[s] == 0 {
			continue
		}
		n := float64(counts[s])
		for d := range h.dim {
			mean := sums[s][d] / n
			h.means[s][d] = mean
			h.vars[s][d] = math.Max(sqs[s][d]/n-mean*mean, h.params.VarianceFloor)
		}
	}
}

// estimateTransitions counts state changes along the path with add-one
// smoothing so no transition becomes impossible.
func (h *GaussianHMM) estimateTransitions(path []int) {
	counts := make([][]float64, h.states)
	for i := range counts {
		counts[i] = make([]float64, h.states)
		for j := range counts[i] {
			counts[i][j] = 1
		}
	}
	for t := 1; t < len(path); t++ {
		counts[path[t-1]][path[t]]++
	}
	for i, row := range counts {
		total := 0.0
		for _, c := range row {
			total += c
		}
		for j, c := range row {
			h.logTrans[i][j] = math.Log(c / total)
		}
	}
}

func (h *GaussianHMM) logEmission(s int, x []float64) float64 {
	lp := 0.0
	for d, v := range x {
		diff := v - h.means[s][d]
		lp -= 0.5 * (math.Log(2*math.Pi*h.vars[s][d]) + diff*diff/h.vars[s][d])
	}
	return lp
}

// Viterbi returns the most likely state path for data under the current
// parameters.
func (h *GaussianHMM) Viterbi(data [][]float64) []int {
	n := len(data)
	if n == 0 || h.states == 0 {
		return nil
	}

	delta := make([]float64, h.states)
	next := make([]float64, h.states)
	back := make([][]int, n)

	for s := range h.states {
		delta[s] = h.logInit[s] + h.logEmission(s, data[0])
	}

	for t := 1; t < n; t++ {
		back[t] = make([]int, h.states)
		for j := range h.states {
			best, bestScore := 0, math.Inf(-1)
			for i := range h.states {
				if score := delta[i] + h.logTrans[i][j]; score > bestScore {
					best, bestScore = i, score
				}
			}
			next[j] = bestScore + h.logEmission(j, data[t])
			back[t][j] = best
		}
		delta, next = next, delta
	}

	path := make([]int, n)
	path[n-1] = 0
	for s := 1; s < h.states; s++ {
		if delta[s] > delta[path[n-1]] {
			path[n-1] = s
		}
	}
	for t := n - 1; t > 0; t-- {
		path[t-1] = back[t][path[t]]
	}
	return path
}

// StateHistograms returns, for every frame, the normalised occurrence count
// of each state within a window of length frames centred on it. The window
// is clipped at the sequence edges.
func StateHistograms(path []int, states, length int) [][]float64 {
	if length < 1 {
		length = 1
	}
	half := length / 2

	histograms := make([][]float64, len(path))
	for i := range path {
		lo := max(0, i-half)
		hi := min(len(path), lo+length)
		lo = max(0, hi-length)

		h := make([]float64, states)
		for _, s := range path[lo:hi] {
			h[s]++
		}
		total := float64(hi - lo)
		for s := range h {
			h[s] /= total
		}
		histograms[i] = h
	}
	return histograms
}
