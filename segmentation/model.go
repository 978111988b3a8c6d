package segmentation

import (
	"fmt"
	"slices"
)

// Segment is a labelled span [Start, End) in input samples
type Segment struct {
	Start int `json:"start" yaml:"start" msgpack:"start"`
	End   int `json:"end" yaml:"end" msgpack:"end"`
	Type  int `json:"type" yaml:"type" msgpack:"type"`
}

// Length returns End - Start
func (s Segment) Length() int {
	return s.End - s.Start
}

// Seconds converts the span to seconds at the given rate
func (s Segment) Seconds(sampleRate int) (start, end float64) {
	if sampleRate <= 0 {
		return 0, 0
	}
	return float64(s.Start) / float64(sampleRate), float64(s.End) / float64(sampleRate)
}

// Segmentation is the ordered, contiguous result of one Segment call
type Segmentation struct {
	Segments     []Segment `json:"segments" yaml:"segments" msgpack:"segments"`
	SampleRate   int       `json:"sample_rate" yaml:"sample_rate" msgpack:"sample_rate"`
	SegmentTypes int       `json:"segment_types" yaml:"segment_types" msgpack:"segment_types"`
}

// Clone returns a deep copy
func (s Segmentation) Clone() Segmentation {
	out := s
	out.Segments = slices.Clone(s.Segments)
	return out
}

// Samples returns the end of the last segment, which is the analysed length
func (s Segmentation) Samples() int {
	if len(s.Segments) == 0 {
		return 0
	}
	return s.Segments[len(s.Segments)-1].End
}

// Duration returns the analysed length in seconds
func (s Segmentation) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(s.Samples()) / float64(s.SampleRate)
}

// Validate checks that segments start at zero, are non-empty, and abut.
func (s Segmentation) Validate() error {
	for i, seg := range s.Segments {
		if seg.End <= seg.Start {
			return fmt.Errorf("segment %d is empty: [%d, %d)", i, seg.Start, seg.End)
		}
		if i == 0 {
			if seg.Start != 0 {
				return fmt.Errorf("first segment starts at %d, want 0", seg.Start)
			}
			continue
		}
		if prev := s.Segments[i-1]; prev.End != seg.Start {
			return fmt.Errorf("gap or overlap between segment %d (end %d) and %d (start %d)", i-1, prev.End, i, seg.Start)
		}
	}
	return nil
}
