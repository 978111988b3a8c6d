package segmentation

// LabelParams carries the clustering parameters handed to a Classifier
type LabelParams struct {
	Mode               FeatureType `json:"mode"`
	Bins               int         `json:"bins"` // constant-Q bins; 0 for external features
	BinsPerOctave      int         `json:"bins_per_octave"`
	HMMStates          int         `json:"hmm_states"`
	HistogramLength    int         `json:"histogram_length"`
	Clusters           int         `json:"clusters"`
	NeighbourhoodLimit int         `json:"neighbourhood_limit"`
}

// Classifier assigns one label in [0, Clusters) to every feature row.
//
// With Mode == FeatureConstantQ each row has Bins+1 columns and the last
// column is scratch space the classifier may overwrite (the default
// classifier stores a normalised envelope there). With FeatureUnknown rows
// are passed at their own width.
type Classifier interface {
	Label(features [][]float64, params LabelParams) ([]int, error)
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func(features [][]float64, params LabelParams) ([]int, error)

// Label calls f
func (f ClassifierFunc) Label(features [][]float64, params LabelParams) ([]int, error) {
	return f(features, params)
}

// classifierInput copies the matrix into the classifier's layout. The
// caller guarantees at least one row.
func classifierInput(features [][]float64, mode FeatureType, bins int) [][]float64 {
	width := len(features[0])
	if mode == FeatureConstantQ {
		width = bins + 1
	}

	out := make([][]float64, len(features))
	for i, row := range features {
		r := make([]float64, width)
		copy(r, row)
		out[i] = r
	}
	return out
}

func (s *Segmenter) labelParams() LabelParams {
	p := LabelParams{
		Mode:               s.featureType,
		BinsPerOctave:      s.config.BinsPerOctave,
		HMMStates:          s.config.HMMStates,
		HistogramLength:    s.config.HistogramLength,
		Clusters:           s.clusters,
		NeighbourhoodLimit: s.config.NeighbourhoodLimit,
	}
	if s.featureType == FeatureConstantQ {
		p.Bins = s.ncoeff
	}
	return p
}
