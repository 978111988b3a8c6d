package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/RyanBlaney/sonido-segmenter/logging"
)

// Format identifies a container/codec the decoder understands
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatOgg Format = "ogg"
)

// ErrUnsupportedFormat is returned for files the decoder cannot read
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	case ".ogg", ".oga":
		return FormatOgg, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// AudioData represents decoded mono audio
type AudioData struct {
	PCM            []float64     `json:"-"` // mono samples in [-1, 1]
	SampleRate     int           `json:"sample_rate"`
	Channels       int           `json:"channels"`        // always 1 after mix-down
	SourceChannels int           `json:"source_channels"` // channels in the file
	SourceRate     int           `json:"source_rate"`
	Format         Format        `json:"format"`
	Duration       time.Duration `json:"duration"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"` // 0 keeps the file's rate
	MaxDuration      time.Duration `json:"max_duration"`       // 0 means no limit
	ResampleQuality  string        `json:"resample_quality"`   // "quick", "low", "medium", "high", "veryhigh"
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 0,
		MaxDuration:      0,
		ResampleQuality:  "high",
	}
}

// Decoder reads WAV, MP3 and Ogg Vorbis into mono float PCM
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// DecodeFile decodes an audio file, picking the codec from its extension
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": filename,
	})

	format, err := FormatFromPath(filename)
	if err != nil {
		logger.Error(err, "Cannot decode file")
		return nil, err
	}

	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open audio file")
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	return d.Decode(f, format)
}

// DecodeBytes decodes an in-memory file
func (d *Decoder) DecodeBytes(data []byte, format Format) (*AudioData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}
	return d.Decode(bytes.NewReader(data), format)
}

// Decode reads a whole stream, mixes it down to mono and resamples it if
// a target rate is set.
func (d *Decoder) Decode(r io.ReadSeeker, format Format) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "Decode",
		"format":   string(format),
	})

	var (
		pcm      []float64
		rate     int
		channels int
		err      error
	)
	switch format {
	case FormatWAV:
		pcm, rate, channels, err = decodeWAV(r)
	case FormatMP3:
		pcm, rate, channels, err = decodeMP3(r)
	case FormatOgg:
		pcm, rate, channels, err = decodeOgg(r)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		logger.Error(err, "Failed to decode audio")
		return nil, err
	}
	if rate <= 0 || channels <= 0 {
		err := fmt.Errorf("invalid stream layout: %d Hz, %d channels", rate, channels)
		logger.Error(err, "Failed to decode audio")
		return nil, err
	}

	mono := mixDown(pcm, channels)
	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds() * float64(rate))
		if len(mono) > limit {
			mono = mono[:limit]
		}
	}

	outRate := rate
	if d.config.TargetSampleRate > 0 && d.config.TargetSampleRate != rate {
		mono, err = d.resample(mono, rate, d.config.TargetSampleRate)
		if err != nil {
			logger.Error(err, "Failed to resample audio")
			return nil, err
		}
		outRate = d.config.TargetSampleRate
	}

	duration := time.Duration(len(mono)) * time.Second / time.Duration(outRate)
	logger.Debug("Audio decoded", logging.Fields{
		"source_rate":     rate,
		"source_channels": channels,
		"output_rate":     outRate,
		"output_samples":  len(mono),
		"duration":        duration.Seconds(),
	})

	return &AudioData{
		PCM:            mono,
		SampleRate:     outRate,
		Channels:       1,
		SourceChannels: channels,
		SourceRate:     rate,
		Format:         format,
		Duration:       duration,
	}, nil
}

// GetSupportedFormats returns a list of formats supported by this decoder
func (d *Decoder) GetSupportedFormats() []Format {
	return []Format{FormatWAV, FormatMP3, FormatOgg}
}

func (d *Decoder) resample(pcm []float64, from, to int) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    qualitySpec(d.config.ResampleQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	out, err := r.Process(pcm)
	if err != nil {
		return nil, fmt.Errorf("failed to resample: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("failed to flush resampler: %w", err)
	}
	return append(out, tail...), nil
}

func qualitySpec(name string) resampling.QualitySpec {
	switch strings.ToLower(name) {
	case "quick":
		return resampling.QualitySpec{Preset: resampling.QualityQuick}
	case "low":
		return resampling.QualitySpec{Preset: resampling.QualityLow}
	case "medium":
		return resampling.QualitySpec{Preset: resampling.QualityMedium}
	case "veryhigh":
		return resampling.QualitySpec{Preset: resampling.QualityVeryHigh}
	default:
		return resampling.QualitySpec{Preset: resampling.QualityHigh}
	}
}

func decodeWAV(r io.ReadSeeker) ([]float64, int, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, 0, errors.New("invalid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("could not read PCM buffer: %w", err)
	}

	depth := int(decoder.BitDepth)
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))

	pcm := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		if depth == 8 {
			// 8-bit WAV is unsigned
			pcm[i] = float64(v-128) / 128
			continue
		}
		pcm[i] = float64(v) / scale
	}
	return pcm, buf.Format.SampleRate, buf.Format.NumChannels, nil
}

// go-mp3 always yields interleaved stereo int16 LE
func decodeMP3(r io.Reader) ([]float64, int, int, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open MP3 stream: %w", err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}

	pcm := make([]float64, len(data)/2)
	for i := range pcm {
		val := int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
		pcm[i] = float64(val) / 32768.0
	}
	return pcm, dec.SampleRate(), 2, nil
}

func decodeOgg(r io.Reader) ([]float64, int, int, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open Ogg Vorbis stream: %w", err)
	}

	channels := dec.Channels()
	chunk := make([]float32, 4096*max(channels, 1))
	var pcm []float64
	for {
		n, err := dec.Read(chunk)
		for _, v := range chunk[:n] {
			pcm = append(pcm, float64(v))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to decode Ogg Vorbis stream: %w", err)
		}
	}
	return pcm, dec.SampleRate(), channels, nil
}

// mixDown averages interleaved channels into one
func mixDown(pcm []float64, channels int) []float64 {
	if channels == 1 {
		return pcm
	}
	frames := len(pcm) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += pcm[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
