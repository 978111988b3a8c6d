package segmentation

import (
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// smallConfig gives 16-sample blocks and an 8-sample hop at 8 kHz.
func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.WindowDuration = 0.002
	cfg.HopDuration = 0.001
	return cfg
}

func newStubSegmenter(t *testing.T, cfg Config, transform *stubTransform, opts ...Option) (*Segmenter, *stubDecimators, *logging.Recorder) {
	t.Helper()

	provider := &stubDecimators{max: 8}
	rec := logging.NewRecorder()
	opts = append([]Option{
		WithDecimators(provider),
		WithTransformFactory(transform.factory()),
		WithLogger(rec),
	}, opts...)

	s, err := New(cfg, &recordingClassifier{}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, provider, rec
}

func TestExtractFeaturesAveragesMagnitudes(t *testing.T) {
	t.Parallel()

	transform := &stubTransform{
		bins:      2,
		fftLength: 8,
		coeffs: func(call, bin int) complex128 {
			if bin == 0 {
				return complex(3*float64(call+1), 4*float64(call+1)) // |.| = 5, 10, 15
			}
			return complex(0, -float64(call)) // |.| = 0, 1, 2
		},
	}
	s, _, _ := newStubSegmenter(t, smallConfig(), transform)
	if err := s.Initialise(8000); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}
	if s.WindowSize() != 16 {
		t.Fatalf("WindowSize() = %d, want 16", s.WindowSize())
	}

	samples := make([]float64, 16)
	if err := s.ExtractFeatures(samples); err != nil {
		t.Fatalf("ExtractFeatures() error = %v", err)
	}

	// frames start at 0, 4 and 8; one at 12 would overrun
	if transform.calls != 3 {
		t.Fatalf("frames processed = %d, want 3", transform.calls)
	}
	rows := s.Features()
	if len(rows) != 1 || len(rows[0]) != 2 {
		t.Fatalf("Features() = %v, want one row of 2", rows)
	}
	if math.Abs(rows[0][0]-10) > 1e-12 || math.Abs(rows[0][1]-1) > 1e-12 {
		t.Fatalf("row = %v, want [10 1]", rows[0])
	}
}

func TestExtractFeaturesOneRowPerCall(t *testing.T) {
	t.Parallel()

	transform := &stubTransform{bins: 5, fftLength: 8}
	s, _, _ := newStubSegmenter(t, smallConfig(), transform)
	if err := s.Initialise(8000); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}

	for _, n := range []int{16, 17, 40, 100} {
		before := s.FeatureCount()
		if err := s.ExtractFeatures(make([]float64, n)); err != nil {
			t.Fatalf("ExtractFeatures(%d) error = %v", n, err)
		}
		if s.FeatureCount() != before+1 {
			t.Fatalf("FeatureCount() = %d, want %d", s.FeatureCount(), before+1)
		}
	}
	for i, row := range s.Features() {
		if len(row) != s.Bins() {
			t.Fatalf("len(row %d) = %d, want %d", i, len(row), s.Bins())
		}
	}
}

func TestExtractFeaturesFirstFrameZeroPadded(t *testing.T) {
	t.Parallel()

	// The FFT is longer than the block, so only the padded first frame runs.
	transform := &stubTransform{bins: 1, fftLength: 32}
	s, _, _ := newStubSegmenter(t, smallConfig(), transform)
	if err := s.Initialise(8000); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}
	if err := s.ExtractFeatures(make([]float64, 16)); err != nil {
		t.Fatalf("ExtractFeatures() error = %v", err)
	}
	if transform.calls != 1 {
		t.Fatalf("frames processed = %d, want 1", transform.calls)
	}
	if s.FeatureCount() != 1 {
		t.Fatalf("FeatureCount() = %d, want 1", s.FeatureCount())
	}
}

func TestExtractFeaturesDecimatesOnce(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	transform := &stubTransform{bins: 3, fftLength: 8}
	s, provider, _ := newStubSegmenter(t, cfg, transform)
	if err := s.Initialise(44100); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}

	// 0.002 s at 44.1 kHz is 88 samples, 22 after decimating by 4:
	// frames at 0, 4, 8, 12; 16 would overrun.
	if err := s.ExtractFeatures(make([]float64, s.WindowSize())); err != nil {
		t.Fatalf("ExtractFeatures() error = %v", err)
	}
	if got := provider.calls(); got != 1 {
		t.Fatalf("decimator calls = %d, want 1", got)
	}
	if transform.calls != 4 {
		t.Fatalf("frames processed = %d, want 4", transform.calls)
	}
}

func TestExtractFeaturesShortBuffer(t *testing.T) {
	t.Parallel()

	transform := &stubTransform{bins: 2, fftLength: 8}
	s, _, rec := newStubSegmenter(t, smallConfig(), transform)
	if err := s.Initialise(8000); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}

	err := s.ExtractFeatures(make([]float64, 15))
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("ExtractFeatures() error = %v, want ErrInsufficientSamples", err)
	}
	if s.FeatureCount() != 0 {
		t.Fatalf("FeatureCount() = %d, want 0", s.FeatureCount())
	}
	if transform.calls != 0 {
		t.Fatalf("frames processed = %d, want 0", transform.calls)
	}

	logged := rec.EntriesAt(logging.ErrorLevel)
	if len(logged) != 1 || !errors.Is(logged[0].Err, ErrInsufficientSamples) {
		t.Fatalf("logged errors = %v, want one ErrInsufficientSamples", logged)
	}
	if logged[0].Fields["component"] != "segmenter" {
		t.Fatalf("Fields[component] = %v, want segmenter", logged[0].Fields["component"])
	}
}

func TestExtractFeaturesNotInitialised(t *testing.T) {
	t.Parallel()

	transform := &stubTransform{bins: 2, fftLength: 8}
	s, _, rec := newStubSegmenter(t, smallConfig(), transform)

	err := s.ExtractFeatures(make([]float64, 64))
	if !errors.Is(err, ErrNotInitialised) {
		t.Fatalf("ExtractFeatures() error = %v, want ErrNotInitialised", err)
	}
	if s.FeatureCount() != 0 {
		t.Fatalf("FeatureCount() = %d, want 0", s.FeatureCount())
	}
	if len(rec.EntriesAt(logging.ErrorLevel)) != 1 {
		t.Fatal("condition was not logged")
	}
}

func TestExtractFeaturesLogsWindowFailure(t *testing.T) {
	t.Parallel()

	transform := &stubTransform{bins: 2, fftLength: 8}
	s, _, rec := newStubSegmenter(t, smallConfig(), transform)
	if err := s.Initialise(8000); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}
	bad := errors.New("bad window")
	s.window = failingWindow{size: 8, err: bad}

	if err := s.ExtractFeatures(make([]float64, 16)); !errors.Is(err, bad) {
		t.Fatalf("ExtractFeatures() error = %v, want wrapped window error", err)
	}
	if s.FeatureCount() != 0 {
		t.Fatalf("FeatureCount() = %d, want 0", s.FeatureCount())
	}
	logged := rec.EntriesAt(logging.ErrorLevel)
	if len(logged) != 1 || !errors.Is(logged[0].Err, bad) {
		t.Fatalf("logged errors = %v, want the window error", logged)
	}
	if logged[0].Fields["function"] != "ExtractFeatures" {
		t.Fatalf("Fields[function] = %v, want ExtractFeatures", logged[0].Fields["function"])
	}
}

func TestExtractSignalBlocks(t *testing.T) {
	t.Parallel()

	transform := &stubTransform{bins: 2, fftLength: 8}
	s, _, _ := newStubSegmenter(t, smallConfig(), transform)
	if err := s.Initialise(8000); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}

	var progress []int
	n, err := s.ExtractSignal(make([]float64, 40), func(done, total int) {
		if total != 4 {
			t.Errorf("progress total = %d, want 4", total)
		}
		progress = append(progress, done)
	})
	if err != nil {
		t.Fatalf("ExtractSignal() error = %v", err)
	}
	// (40 - 16) / 8 + 1
	if n != 4 || s.FeatureCount() != 4 {
		t.Fatalf("ExtractSignal() = %d rows, FeatureCount() = %d, want 4", n, s.FeatureCount())
	}
	if len(progress) != 4 || progress[3] != 4 {
		t.Fatalf("progress = %v, want [1 2 3 4]", progress)
	}

	if _, err := s.ExtractSignal(make([]float64, 10), nil); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("ExtractSignal(short) error = %v, want ErrInsufficientSamples", err)
	}
}
