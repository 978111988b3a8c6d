package stats

import (
	"fmt"
	"math"
	"math/rand"
)

// ClusteringResult contains the results of clustering analysis
type ClusteringResult struct {
	Labels      []int       `json:"labels"`  // Cluster assignment for each point
	Centers     [][]float64 `json:"centers"` // Cluster centers
	Inertia     float64     `json:"inertia"` // Total within-cluster distance
	NumClusters int         `json:"num_clusters"`
	Converged   bool        `json:"converged"`
	Iterations  int         `json:"iterations"`
}

// ClusteringParams contains parameters for clustering algorithms
type ClusteringParams struct {
	NumClusters   int            `json:"num_clusters"`
	MaxIterations int            `json:"max_iterations"`
	Tolerance     float64        `json:"tolerance"` // fraction of points allowed to move at convergence
	Distance      DistanceMetric `json:"distance"`
	InitMethod    string         `json:"init_method"` // "random" or "kmeans++"
	RandomSeed    int64          `json:"random_seed"`

	// Melt clustering only: labels within NeighbourhoodLimit rows that
	// disagree with a candidate add Gamma * (disagreeing / window) to its cost.
	NeighbourhoodLimit int     `json:"neighbourhood_limit"`
	Gamma              float64 `json:"gamma"`
}

// DefaultClusteringParams returns k-means++ over Euclidean distance
func DefaultClusteringParams(k int) ClusteringParams {
	return ClusteringParams{
		NumClusters:   k,
		MaxIterations: 100,
		Tolerance:     1e-4,
		Distance:      EuclideanDistance,
		InitMethod:    "kmeans++",
		RandomSeed:    42,
		Gamma:         0.5,
	}
}

// Clustering groups feature vectors.
//
// References:
//   - MacQueen, J. (1967). "Some methods for classification and analysis of
//     multivariate observations"
//   - Arthur, D., & Vassilvitskii, S. (2007). "k-means++: The advantages of
//     careful seeding"
//   - Abdallah, S., et al. (2005). "Theory and evaluation of a Bayesian music
//     structure extractor"
type Clustering struct {
	params   ClusteringParams
	distance DistanceFunction
	rng      *rand.Rand
}

// NewClustering creates a clustering analyzer with custom parameters
func NewClustering(params ClusteringParams) *Clustering {
	if params.MaxIterations <= 0 {
		params.MaxIterations = 100
	}
	return &Clustering{
		params:   params,
		distance: GetDistanceFunction(params.Distance),
		rng:      rand.New(rand.NewSource(params.RandomSeed)),
	}
}

func validateData(data [][]float64, k int) error {
	if len(data) == 0 {
		return fmt.Errorf("empty data")
	}
	if k <= 0 {
		return fmt.Errorf("number of clusters must be positive, got %d", k)
	}
	if k > len(data) {
		return fmt.Errorf("number of clusters (%d) cannot exceed number of data points (%d)", k, len(data))
	}
	dim := len(data[0])
	for i, row := range data {
		if len(row) != dim {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), dim)
		}
	}
	return nil
}

// KMeans runs Lloyd's algorithm with k-means++ initialization
func (c *Clustering) KMeans(data [][]float64) (*ClusteringResult, error) {
	k := c.params.NumClusters
	if err := validateData(data, k); err != nil {
		return nil, err
	}

	centers := c.initializeCenters(data, k)
	labels := make([]int, len(data))
	for i := range labels {
		labels[i] = -1
	}

	converged := false
	iterations := 0
	for iterations < c.params.MaxIterations && !converged {
		moved := 0
		for i, point := range data {
			best := c.nearest(point, centers)
			if labels[i] != best {
				moved++
			}
			labels[i] = best
		}
		centers = c.updateCenters(data, labels, centers)

		converged = float64(moved)/float64(len(data)) < c.params.Tolerance
		iterations++
	}

	return &ClusteringResult{
		Labels:      labels,
		Centers:     centers,
		Inertia:     c.inertia(data, labels, centers),
		NumClusters: k,
		Converged:   converged,
		Iterations:  iterations,
	}, nil
}

// Melt clusters a time-ordered sequence of vectors (typically state
// histograms). It starts from k-means and then reassigns each row in
// sequence, penalising labels that disagree with rows in its neighbourhood,
// which smooths the labelling along time.
func (c *Clustering) Melt(data [][]float64) (*ClusteringResult, error) {
	initial, err := c.KMeans(data)
	if err != nil {
		return nil, err
	}

	labels := initial.Labels
	centers := initial.Centers
	limit := c.params.NeighbourhoodLimit
	k := c.params.NumClusters

	converged := false
	iterations := 0
	for iterations < c.params.MaxIterations && !converged {
		moved := 0
		for i, point := range data {
			lo := max(0, i-limit)
			hi := min(len(data)-1, i+limit)
			window := hi - lo

			best, bestCost := labels[i], math.Inf(1)
			for cand := range k {
				cost := c.distance(point, centers[cand])
				if window > 0 && c.params.Gamma > 0 {
					disagree := 0
					for j := lo; j <= hi; j++ {
						if j != i && labels[j] != cand {
							disagree++
						}
					}
					cost += c.params.Gamma * float64(disagree) / float64(window)
				}
				if cost < bestCost {
					best, bestCost = cand, cost
				}
			}
			if best != labels[i] {
				labels[i] = best
				moved++
			}
		}
		centers = c.updateCenters(data, labels, centers)

		converged = moved == 0
		iterations++
	}

	return &ClusteringResult{
		Labels:      labels,
		Centers:     centers,
		Inertia:     c.inertia(data, labels, centers),
		NumClusters: k,
		Converged:   converged,
		Iterations:  initial.Iterations + iterations,
	}, nil
}

func (c *Clustering) nearest(point []float64, centers [][]float64) int {
	best := 0
	minDist := math.Inf(1)
	for j, center := range centers {
		if d := c.distance(point, center); d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

// updateCenters averages members; an empty cluster keeps its previous center.
func (c *Clustering) updateCenters(data [][]float64, labels []int, prev [][]float64) [][]float64 {
	k := len(prev)
	dim := len(data[0])
	sizes := make([]int, k)
	centers := make([][]float64, k)
	for i := range centers {
		centers[i] = make([]float64, dim)
	}

	for i, point := range data {
		cluster := labels[i]
		sizes[cluster]++
		for j, v := range point {
			centers[cluster][j] += v
		}
	}

	for i := range centers {
		if sizes[i] == 0 {
			copy(centers[i], prev[i])
			continue
		}
		for j := range centers[i] {
			centers[i][j] /= float64(sizes[i])
		}
	}
	return centers
}

// initializeCenters initializes cluster centers using k-means++
func (c *Clustering) initializeCenters(data [][]float64, k int) [][]float64 {
	n := len(data)
	centers := make([][]float64, k)
	pick := func(i int) []float64 {
		out := make([]float64, len(data[i]))
		copy(out, data[i])
		return out
	}

	if c.params.InitMethod == "random" {
		for i, idx := range c.rng.Perm(n)[:k] {
			centers[i] = pick(idx)
		}
		return centers
	}

	centers[0] = pick(c.rng.Intn(n))
	distances := make([]float64, n)
	for i := 1; i < k; i++ {
		total := 0.0
		for j, point := range data {
			d := c.distance(point, centers[c.nearest(point, centers[:i])])
			distances[j] = d * d
			total += distances[j]
		}

		if total <= 0 {
			centers[i] = pick(c.rng.Intn(n))
			continue
		}

		// Choose next center with probability proportional to squared distance
		r := c.rng.Float64() * total
		cumSum := 0.0
		chosen := n - 1
		for j, d := range distances {
			cumSum += d
			if cumSum >= r {
				chosen = j
				break
			}
		}
		centers[i] = pick(chosen)
	}

	return centers
}

func (c *Clustering) inertia(data [][]float64, labels []int, centers [][]float64) float64 {
	total := 0.0
	for i, point := range data {
		total += c.distance(point, centers[labels[i]])
	}
	return total
}
