package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-segmenter/segmentation"
)

const testRate = 22050

// writeTwoPartWAV writes 3 s of a low tone followed by 3 s of a high tone.
func writeTwoPartWAV(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "two_part.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	data := make([]int, 6*testRate)
	for i := range data {
		freq := 220.0
		if i >= 3*testRate {
			freq = 2500.0
		}
		data[i] = int(12000 * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}

	enc := wav.NewEncoder(f, testRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions() analysisOptions {
	cfg := segmentation.DefaultConfig()
	cfg.HMMStates = 4
	cfg.Clusters = 2
	cfg.HistogramLength = 3
	cfg.NeighbourhoodLimit = 2
	return analysisOptions{Config: cfg, DCCutoff: 10}
}

// rows = (6*22050 - 13230)/4410 + 1 = 28, each hop 4410 samples
const wantAnalysed = 28 * 4410

func checkReport(t *testing.T, rep *report) {
	t.Helper()

	if rep.SampleRate != testRate {
		t.Fatalf("SampleRate = %d, want %d", rep.SampleRate, testRate)
	}
	if len(rep.Segments) == 0 {
		t.Fatal("no segments")
	}
	if rep.Segments[0].StartSample != 0 {
		t.Fatalf("first segment starts at %d", rep.Segments[0].StartSample)
	}
	for i := 1; i < len(rep.Segments); i++ {
		if rep.Segments[i].StartSample != rep.Segments[i-1].EndSample {
			t.Fatalf("gap between segments %d and %d: %+v", i-1, i, rep.Segments)
		}
	}
	if end := rep.Segments[len(rep.Segments)-1].EndSample; end != wantAnalysed {
		t.Fatalf("last segment ends at %d, want %d", end, wantAnalysed)
	}
	// 12000/32768 peak sine is about -11 dBFS
	for i, s := range rep.Segments {
		if s.LevelDB < -14 || s.LevelDB > -9 {
			t.Fatalf("segment %d level = %.2f dB, want about -11", i, s.LevelDB)
		}
	}
}

func TestAnalyseConstantQWithCache(t *testing.T) {
	path := writeTwoPartWAV(t)
	opts := testOptions()
	opts.CacheDir = t.TempDir()
	opts.Progress = &bytes.Buffer{}

	first, err := analyse(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("analyse() error = %v", err)
	}
	checkReport(t, first)
	if first.Cached || first.Frontend != frontendConstantQ {
		t.Fatalf("first run = cached %v, frontend %q", first.Cached, first.Frontend)
	}

	second, err := analyse(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("analyse() second run error = %v", err)
	}
	if !second.Cached {
		t.Fatal("second run was not served from the cache")
	}
	if len(second.Segments) != len(first.Segments) {
		t.Fatalf("cached segments = %+v, want %+v", second.Segments, first.Segments)
	}
	for i := range first.Segments {
		if first.Segments[i] != second.Segments[i] {
			t.Fatalf("cached segment %d = %+v, want %+v", i, second.Segments[i], first.Segments[i])
		}
	}

	// a different cluster count is a different cache entry
	opts.Clusters = 1
	third, err := analyse(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("analyse() with --clusters error = %v", err)
	}
	if third.Cached || third.SegmentTypes != 1 {
		t.Fatalf("override run = cached %v, types %d", third.Cached, third.SegmentTypes)
	}
}

func TestAnalyseMFCC(t *testing.T) {
	path := writeTwoPartWAV(t)
	opts := testOptions()
	opts.Frontend = frontendMFCC

	rep, err := analyse(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("analyse() error = %v", err)
	}
	checkReport(t, rep)
	if rep.Frontend != frontendMFCC {
		t.Fatalf("Frontend = %q, want mfcc", rep.Frontend)
	}
}

func TestAnalyseRejectsBadOptions(t *testing.T) {
	path := writeTwoPartWAV(t)

	opts := testOptions()
	opts.Frontend = "chroma"
	if _, err := analyse(context.Background(), path, opts); err == nil {
		t.Fatal("analyse() error = nil for unknown front end")
	}

	opts = testOptions()
	if _, err := analyse(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), opts); err == nil {
		t.Fatal("analyse() error = nil for missing file")
	}
}

func TestWriteResultFormats(t *testing.T) {
	t.Parallel()

	rep := newReport("a.wav", frontendConstantQ, segmentation.Segmentation{
		Segments:     []segmentation.Segment{{Start: 0, End: 44100, Type: 0}, {Start: 44100, End: 66150, Type: 1}},
		SampleRate:   44100,
		SegmentTypes: 2,
	}, false, nil)

	var text bytes.Buffer
	if err := writeResult(&text, rep, formatText, rep.writeText); err != nil {
		t.Fatalf("writeResult(text) error = %v", err)
	}
	if !strings.Contains(text.String(), "2 segments, 2 types, 1.5s") {
		t.Fatalf("text output = %q", text.String())
	}

	var js bytes.Buffer
	if err := writeResult(&js, rep, formatJSON, nil); err != nil {
		t.Fatalf("writeResult(json) error = %v", err)
	}
	var decoded report
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	if len(decoded.Segments) != 2 || decoded.Segments[1].Start != 1.0 {
		t.Fatalf("decoded = %+v", decoded)
	}

	var yml bytes.Buffer
	if err := writeResult(&yml, rep, formatYAML, nil); err != nil {
		t.Fatalf("writeResult(yaml) error = %v", err)
	}
	if !strings.Contains(yml.String(), "segment_types: 2") {
		t.Fatalf("yaml output = %q", yml.String())
	}

	if err := writeResult(&yml, rep, "xml", nil); err == nil {
		t.Fatal("writeResult(xml) error = nil")
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		12.34: "12.3s",
		75:    "1m15s",
		3720:  "1h2m",
	}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}
