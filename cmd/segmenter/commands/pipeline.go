package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/RyanBlaney/sonido-segmenter/algorithms/filters"
	"github.com/RyanBlaney/sonido-segmenter/algorithms/temporal"
	"github.com/RyanBlaney/sonido-segmenter/extractors"
	"github.com/RyanBlaney/sonido-segmenter/logging"
	"github.com/RyanBlaney/sonido-segmenter/segmentation"
	"github.com/RyanBlaney/sonido-segmenter/segmentation/cluster"
	"github.com/RyanBlaney/sonido-segmenter/store"
	"github.com/RyanBlaney/sonido-segmenter/transcode"
)

// Front end names accepted by --features
const (
	frontendConstantQ = "constq"
	frontendMFCC      = "mfcc"
)

// analysisOptions collects everything run needs besides the input path
type analysisOptions struct {
	Config      segmentation.Config
	Frontend    string
	Clusters    int // 0 keeps Config.Clusters
	SampleRate  int // decode target, 0 keeps the file's rate
	MaxDuration time.Duration
	DCCutoff    float64 // 0 disables DC blocking
	CacheDir    string  // empty disables the result cache
	Progress    io.Writer
}

// report is what run prints
type report struct {
	File         string          `json:"file" yaml:"file"`
	Frontend     string          `json:"frontend" yaml:"frontend"`
	SampleRate   int             `json:"sample_rate" yaml:"sample_rate"`
	Duration     float64         `json:"duration" yaml:"duration"`
	SegmentTypes int             `json:"segment_types" yaml:"segment_types"`
	Cached       bool            `json:"cached" yaml:"cached"`
	Segments     []segmentReport `json:"segments" yaml:"segments"`
}

type segmentReport struct {
	Start       float64 `json:"start" yaml:"start"` // seconds
	End         float64 `json:"end" yaml:"end"`
	StartSample int     `json:"start_sample" yaml:"start_sample"`
	EndSample   int     `json:"end_sample" yaml:"end_sample"`
	Type        int     `json:"type" yaml:"type"`
	LevelDB     float64 `json:"level_db" yaml:"level_db"` // RMS level of the span
}

// newReport converts seg to seconds and measures each span of pcm, which
// may be nil.
func newReport(file, frontend string, seg segmentation.Segmentation, cached bool, pcm []float64) *report {
	energy := temporal.NewEnergy(0)
	r := &report{
		File:         file,
		Frontend:     frontend,
		SampleRate:   seg.SampleRate,
		Duration:     seg.Duration(),
		SegmentTypes: seg.SegmentTypes,
		Cached:       cached,
		Segments:     make([]segmentReport, 0, len(seg.Segments)),
	}
	for _, s := range seg.Segments {
		start, end := s.Seconds(seg.SampleRate)
		r.Segments = append(r.Segments, segmentReport{
			Start:       start,
			End:         end,
			StartSample: s.Start,
			EndSample:   s.End,
			Type:        s.Type,
			LevelDB:     energy.SpanLevel(pcm, s.Start, s.End),
		})
	}
	return r
}

// analyse decodes path and segments it, consulting the cache if one is set
func analyse(ctx context.Context, path string, opts analysisOptions) (*report, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "segmenter_cli",
		"function":  "analyse",
		"file":      path,
	})

	if opts.Frontend == "" {
		opts.Frontend = frontendConstantQ
	}
	cfg := opts.Config
	switch opts.Frontend {
	case frontendConstantQ:
		cfg.FeatureType = segmentation.FeatureConstantQ
	case frontendMFCC:
		cfg.FeatureType = segmentation.FeatureUnknown
	default:
		return nil, fmt.Errorf("unknown feature front end %q (want %s or %s)", opts.Frontend, frontendConstantQ, frontendMFCC)
	}
	if opts.Clusters < 0 {
		return nil, fmt.Errorf("cluster count must not be negative, got %d", opts.Clusters)
	}

	decoder := transcode.NewDecoder(&transcode.DecoderConfig{
		TargetSampleRate: opts.SampleRate,
		MaxDuration:      opts.MaxDuration,
		ResampleQuality:  "high",
	})
	audio, err := decoder.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	pcm := audio.PCM
	if opts.DCCutoff > 0 {
		dc, err := filters.NewDCBlocker(audio.SampleRate, opts.DCCutoff)
		if err != nil {
			return nil, fmt.Errorf("failed to create DC blocker: %w", err)
		}
		pcm = dc.Process(pcm)
	}

	var (
		cache *store.Store
		key   store.Key
	)
	if opts.CacheDir != "" {
		cache, err = store.Open(store.Options{Dir: opts.CacheDir})
		if err != nil {
			return nil, err
		}
		defer cache.Close()

		keyConfig := cfg
		if opts.Clusters > 0 {
			keyConfig.Clusters = opts.Clusters
		}
		key, err = store.NewKey(pcm, audio.SampleRate, keyConfig, opts.Frontend)
		if err != nil {
			return nil, err
		}

		rec, err := cache.Get(ctx, key)
		switch {
		case err == nil:
			logger.Info("Using cached segmentation", logging.Fields{"key": string(key)})
			return newReport(path, opts.Frontend, rec.Segmentation, true, pcm), nil
		case !errors.Is(err, store.ErrNotFound):
			logger.Warn("Cache read failed, recomputing", logging.Fields{"error": err.Error()})
		}
	}

	seg, err := segmentation.New(cfg, cluster.New())
	if err != nil {
		return nil, err
	}
	if err := seg.Initialise(audio.SampleRate); err != nil {
		return nil, err
	}

	switch opts.Frontend {
	case frontendConstantQ:
		if err := extractConstantQ(seg, pcm, opts.Progress); err != nil {
			return nil, err
		}
	case frontendMFCC:
		ext, err := extractors.NewCepstralExtractor(extractors.BlockConfig{
			SampleRate: audio.SampleRate,
			BlockSize:  seg.WindowSize(),
			HopSize:    seg.HopSize(),
		})
		if err != nil {
			return nil, err
		}
		rows, err := ext.Extract(pcm)
		if err != nil {
			return nil, err
		}
		seg.SetFeatures(rows)
	}

	if opts.Clusters > 0 {
		err = seg.SegmentWithClusters(opts.Clusters)
	} else {
		err = seg.Segment()
	}
	if err != nil {
		return nil, err
	}
	result := seg.Segmentation()

	if cache != nil {
		if err := cache.Put(ctx, key, result, opts.Frontend); err != nil {
			logger.Warn("Failed to cache segmentation", logging.Fields{"error": err.Error()})
		}
	}

	logger.Info("Segmentation complete", logging.Fields{
		"segments": len(result.Segments),
		"duration": result.Duration(),
	})
	return newReport(path, opts.Frontend, result, false, pcm), nil
}

// extractConstantQ runs block extraction, drawing a progress bar when out
// is set.
func extractConstantQ(seg *segmentation.Segmenter, pcm []float64, out io.Writer) error {
	if out == nil {
		_, err := seg.ExtractSignal(pcm, nil)
		return err
	}

	window, hop := seg.WindowSize(), seg.HopSize()
	total := 0
	if hop > 0 && len(pcm) >= window {
		total = (len(pcm)-window)/hop + 1
	}

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(out))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Extracting: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	start := time.Now()
	_, err := seg.ExtractSignal(pcm, func(done, _ int) {
		bar.EwmaSetCurrent(int64(done), time.Since(start))
		start = time.Now()
	})
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	return err
}
