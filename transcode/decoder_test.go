package transcode

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeStereoWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	// left 16384, right 0 -> mono 0.25
	data := make([]int, 2*800)
	for i := 0; i < len(data); i += 2 {
		data[i] = 16384
	}
	writeWAV(t, path, 8000, 2, data)

	got, err := NewDecoder(nil).DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if got.SampleRate != 8000 || got.SourceChannels != 2 || got.Channels != 1 {
		t.Fatalf("layout = %d Hz, %d -> %d channels", got.SampleRate, got.SourceChannels, got.Channels)
	}
	if len(got.PCM) != 800 {
		t.Fatalf("len(PCM) = %d, want 800", len(got.PCM))
	}
	for i, v := range got.PCM {
		if math.Abs(v-0.25) > 1e-9 {
			t.Fatalf("PCM[%d] = %v, want 0.25", i, v)
		}
	}
	if got.Duration != 100*time.Millisecond {
		t.Fatalf("Duration = %v, want 100ms", got.Duration)
	}
}

func TestDecodeResampleAndLimit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mono.wav")
	data := make([]int, 16000)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*200*float64(i)/16000))
	}
	writeWAV(t, path, 16000, 1, data)

	d := NewDecoder(&DecoderConfig{
		TargetSampleRate: 8000,
		MaxDuration:      500 * time.Millisecond,
		ResampleQuality:  "medium",
	})
	got, err := d.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if got.SampleRate != 8000 || got.SourceRate != 16000 {
		t.Fatalf("rates = %d from %d", got.SampleRate, got.SourceRate)
	}
	// 0.5 s at 8 kHz, give or take the resampler edge
	if n := len(got.PCM); n < 3900 || n > 4100 {
		t.Fatalf("len(PCM) = %d, want about 4000", n)
	}
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"a.wav":  FormatWAV,
		"b.MP3":  FormatMP3,
		"c.ogg":  FormatOgg,
		"d.wave": FormatWAV,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v, want %q", path, got, err, want)
		}
	}
	if _, err := FormatFromPath("e.flac"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("FormatFromPath(flac) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodeInvalidInput(t *testing.T) {
	t.Parallel()

	d := NewDecoder(nil)
	if _, err := d.DecodeBytes(nil, FormatWAV); err == nil {
		t.Fatal("DecodeBytes(nil) error = nil")
	}
	if _, err := d.DecodeBytes([]byte("not a wav file at all"), FormatWAV); err == nil {
		t.Fatal("DecodeBytes(garbage) error = nil")
	}
	if _, err := d.DecodeBytes([]byte{1, 2, 3}, Format("flac")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("DecodeBytes(flac) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestMixDown(t *testing.T) {
	t.Parallel()

	got := mixDown([]float64{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float64{0.5, 0.5, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mixDown() = %v, want %v", got, want)
		}
	}
}
