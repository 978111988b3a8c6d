// Package cluster is the default segmentation.Classifier: a Gaussian HMM
// over (optionally PCA-reduced) features, sliding state histograms, and a
// time-constrained clustering of those histograms into segment types.
package cluster

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/stats"
	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/segmentation"
)

// Components is the number of principal components kept from
// constant-Q features.
const Components = 20

// Options tunes the classifier internals
type Options struct {
	Seed          int64   `json:"seed"`
	Gamma         float64 `json:"gamma"` // neighbourhood disagreement weight
	MaxIterations int     `json:"max_iterations"`
	LogFloor      float64 `json:"log_floor"` // added before log compression
}

// DefaultOptions returns a deterministic configuration
func DefaultOptions() Options {
	return Options{
		Seed:          42,
		Gamma:         0.5,
		MaxIterations: 100,
		LogFloor:      1e-6,
	}
}

// Classifier labels feature matrices. It is stateless between calls.
type Classifier struct {
	options Options
	logger  logging.Logger
}

var _ segmentation.Classifier = (*Classifier)(nil)

// New creates a classifier with DefaultOptions
func New() *Classifier {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a classifier with custom options
func NewWithOptions(options Options) *Classifier {
	return &Classifier{
		options: options,
		logger: logging.WithFields(logging.Fields{
			"component": "cluster_classifier",
		}),
	}
}

// Label implements segmentation.Classifier
func (c *Classifier) Label(features [][]float64, params segmentation.LabelParams) ([]int, error) {
	if len(features) == 0 {
		return nil, segmentation.ErrEmptyFeatureMatrix
	}

	logger := c.logger.WithFields(logging.Fields{
		"function": "Label",
		"rows":     len(features),
		"mode":     params.Mode.String(),
	})

	var (
		observations [][]float64
		err          error
	)
	switch params.Mode {
	case segmentation.FeatureConstantQ:
		observations, err = c.constantQObservations(features, params.Bins)
	default:
		observations = features
	}
	if err != nil {
		logger.Error(err, "Failed to prepare observations")
		return nil, err
	}

	labels, err := c.labelObservations(observations, params)
	if err != nil {
		logger.Error(err, "Failed to label observations")
		return nil, err
	}

	logger.Debug("Labelled features", logging.Fields{"labels": len(labels)})
	return labels, nil
}

// constantQObservations turns Bins+1 wide rows into PCA-reduced spectral
// shapes with the normalised envelope appended. The envelope is written
// into the reserved last column of each input row.
func (c *Classifier) constantQObservations(features [][]float64, bins int) ([][]float64, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("constant-Q features need a positive bin count, got %d", bins)
	}
	for i, row := range features {
		if len(row) < bins+1 {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), bins+1)
		}
	}

	maxEnv := 0.0
	for _, row := range features {
		env := 0.0
		for _, v := range row[:bins] {
			env += v * v
		}
		row[bins] = math.Sqrt(env)
		maxEnv = math.Max(maxEnv, row[bins])
	}

	shapes := make([][]float64, len(features))
	for i, row := range features {
		if maxEnv > 0 {
			row[bins] /= maxEnv
		}

		shape := make([]float64, bins)
		norm := 0.0
		for k, v := range row[:bins] {
			shape[k] = math.Log10(v + c.options.LogFloor)
			norm += shape[k] * shape[k]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range shape {
				shape[k] /= norm
			}
		}
		shapes[i] = shape
	}

	pca, err := stats.PCA(shapes, Components)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce features: %w", err)
	}

	observations := make([][]float64, len(features))
	for i, proj := range pca.Projected {
		obs := make([]float64, len(proj)+1)
		copy(obs, proj)
		obs[len(proj)] = features[i][bins]
		observations[i] = obs
	}
	return observations, nil
}

// labelObservations runs the HMM, histogram and melt stages.
func (c *Classifier) labelObservations(observations [][]float64, params segmentation.LabelParams) ([]int, error) {
	if params.HMMStates <= 0 || params.Clusters <= 0 {
		return nil, fmt.Errorf("states (%d) and clusters (%d) must be positive", params.HMMStates, params.Clusters)
	}

	hmmParams := stats.DefaultHMMParams(params.HMMStates)
	hmmParams.RandomSeed = c.options.Seed
	hmm := stats.NewGaussianHMM(hmmParams)
	path, err := hmm.Fit(observations)
	if err != nil {
		return nil, fmt.Errorf("failed to train HMM: %w", err)
	}

	histograms := stats.StateHistograms(path, hmm.States(), params.HistogramLength)

	clusterParams := stats.DefaultClusteringParams(min(params.Clusters, len(histograms)))
	clusterParams.Distance = stats.SymmetricKLDistance
	clusterParams.RandomSeed = c.options.Seed
	clusterParams.MaxIterations = c.options.MaxIterations
	clusterParams.NeighbourhoodLimit = params.NeighbourhoodLimit
	clusterParams.Gamma = c.options.Gamma

	result, err := stats.NewClustering(clusterParams).Melt(histograms)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster histograms: %w", err)
	}
	return result.Labels, nil
}
