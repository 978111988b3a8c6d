package segmentation

import (
	"fmt"

	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// BuildSegments run-length encodes labels into contiguous segments, one
// label per hop samples.
func BuildSegments(labels []int, hop int) []Segment {
	if len(labels) == 0 {
		return nil
	}

	segments := make([]Segment, 0, 8)
	current := Segment{Start: 0, Type: labels[0]}
	for i := 1; i < len(labels); i++ {
		if labels[i] != labels[i-1] {
			current.End = i * hop
			segments = append(segments, current)
			current = Segment{Start: i * hop, Type: labels[i]}
		}
	}
	current.End = len(labels) * hop
	return append(segments, current)
}

// Segment labels the feature matrix and replaces the stored Segmentation.
// On success the matrix is cleared and the extraction frontend released, so
// further extraction needs a new Initialise.
//
// An empty matrix fails with ErrEmptyFeatureMatrix and changes nothing.
func (s *Segmenter) Segment() error {
	logger := s.logger.WithFields(logging.Fields{
		"function":     "Segment",
		"rows":         len(s.features),
		"feature_type": s.featureType.String(),
		"clusters":     s.clusters,
	})

	if len(s.features) == 0 {
		err := ErrEmptyFeatureMatrix
		logger.Error(err, "Cannot segment")
		return err
	}
	hop := s.HopSize()
	if hop < 1 {
		err := fmt.Errorf("%w: hop size is %d samples at rate %d", ErrNotInitialised, hop, s.sampleRate)
		logger.Error(err, "Cannot segment")
		return err
	}

	if err := checkRowWidths(s.features); err != nil {
		logger.Error(err, "Cannot segment")
		return err
	}

	s.releaseFrontend()

	params := s.labelParams()
	input := classifierInput(s.features, s.featureType, params.Bins)

	labels, err := s.classifier.Label(input, params)
	if err != nil {
		logger.Error(err, "Classifier failed")
		return fmt.Errorf("failed to label features: %w", err)
	}
	if len(labels) != len(s.features) {
		err := fmt.Errorf("%w: got %d, want %d", ErrLabelCount, len(labels), len(s.features))
		logger.Error(err, "Classifier failed")
		return err
	}

	s.segmentation = Segmentation{
		Segments:     BuildSegments(labels, hop),
		SampleRate:   s.sampleRate,
		SegmentTypes: s.clusters,
	}
	s.features = nil

	logger.Info("Segmentation complete", logging.Fields{
		"segments": len(s.segmentation.Segments),
	})
	return nil
}

// checkRowWidths rejects a matrix whose rows differ in length
func checkRowWidths(features [][]float64) error {
	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("%w: feature row %d has %d columns, row 0 has %d", ErrInvalidConfig, i, len(row), width)
		}
	}
	return nil
}

// SegmentWithClusters sets the cluster count for this and every later
// Segment call, then segments.
func (s *Segmenter) SegmentWithClusters(n int) error {
	if n <= 0 {
		err := fmt.Errorf("%w: cluster count must be positive, got %d", ErrInvalidConfig, n)
		s.logger.Error(err, "Cannot segment", logging.Fields{"function": "SegmentWithClusters"})
		return err
	}
	s.clusters = n
	return s.Segment()
}
