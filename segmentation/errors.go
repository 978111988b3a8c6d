package segmentation

import "errors"

var (
	// ErrNotInitialised means extraction ran before Initialise built the
	// constant-Q frontend.
	ErrNotInitialised = errors.New("segmenter not initialised")

	// ErrInsufficientSamples means a block was shorter than WindowSize().
	ErrInsufficientSamples = errors.New("insufficient samples for one analysis window")

	// ErrEmptyFeatureMatrix means Segment ran with no feature rows.
	ErrEmptyFeatureMatrix = errors.New("empty feature matrix")

	// ErrLabelCount means the classifier did not return one label per row.
	ErrLabelCount = errors.New("classifier returned wrong number of labels")

	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidConfig     = errors.New("invalid segmenter config")
)
