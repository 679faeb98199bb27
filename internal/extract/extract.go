// Package extract runs the clip pipeline for one annotation file: validate
// spans, slice clips via the audio service, and write the manifest.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"scribe2clips/internal/audio"
	"scribe2clips/internal/pipeline"
)

// Failure classes for one annotation file. Span rejections are not errors;
// these mark conditions that abandon the file's remaining spans.
var (
	// ErrSource marks a missing or unreadable audio source, or a codec
	// failure while slicing a span.
	ErrSource = errors.New("source error")
	// ErrIO marks failures reading the annotation or writing the output
	// directory or manifest.
	ErrIO = errors.New("io error")
)

// ManifestFilename is the per-annotation-file manifest written into the
// output directory.
const ManifestFilename = "metadata.json"

// Clip is one extracted segment recorded in the manifest. Index is 1-based
// over valid spans only.
type Clip struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Filename string  `json:"filename"`
}

// Manifest describes all clips produced from one annotation file.
type Manifest struct {
	Source     string `json:"source"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Clips      []Clip `json:"clips"`
}

// Options configures one annotation file's extraction run.
type Options struct {
	AnnotationPath string
	Source         audio.Source
	Service        audio.Service
	SampleRate     int
	Channels       int
	MinDuration    float64
	Ratings        []string
	Logger         *slog.Logger
}

// Result summarizes one annotation file's run.
type Result struct {
	ManifestPath string
	Clips        int
	Skipped      int
}

// Run validates and extracts every span of one annotation file, in input
// order, then writes the manifest. Rejected spans are skipped with a warning
// and never claim a clip index; a service or filesystem failure abandons the
// remaining spans with no manifest published.
func Run(ctx context.Context, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	spans, err := pipeline.LoadAnnotation(opts.AnnotationPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	spans = pipeline.FilterRatings(spans, opts.Ratings)

	stem := strings.TrimSuffix(filepath.Base(opts.AnnotationPath), filepath.Ext(opts.AnnotationPath))
	outDir := filepath.Join(filepath.Dir(opts.AnnotationPath), stem)

	// Recreate the output directory so re-runs are byte-identical.
	if err := os.RemoveAll(outDir); err != nil {
		return Result{}, fmt.Errorf("%w: reset output dir: %w", ErrIO, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: create output dir: %w", ErrIO, err)
	}

	manifest := Manifest{
		Source:     filepath.Base(opts.Source.Path),
		SampleRate: opts.SampleRate,
		Channels:   opts.Channels,
		Clips:      []Clip{},
	}

	progress := rate.Sometimes{First: 1, Interval: 2 * time.Second}
	skipped := 0

	for i, span := range spans {
		if reason := pipeline.Validate(span, opts.Source.Duration, opts.MinDuration); reason != "" {
			logger.Warn("skipping segment",
				"segment", i+1,
				"reason", string(reason),
				"start", span.Start,
				"end", span.End)
			skipped++
			continue
		}

		index := len(manifest.Clips) + 1
		filename := fmt.Sprintf("%03d.wav", index)

		progress.Do(func() {
			logger.Info("extracting clips", "segment", i+1, "total", len(spans))
		})

		req := audio.Request{
			SourcePath: opts.Source.Path,
			Start:      span.Start,
			End:        span.End,
			SampleRate: opts.SampleRate,
			Channels:   opts.Channels,
			OutPath:    filepath.Join(outDir, filename),
		}
		if err := opts.Service.Extract(ctx, req); err != nil {
			return Result{}, fmt.Errorf("%w: extract segment %d: %w", ErrSource, i+1, err)
		}

		manifest.Clips = append(manifest.Clips, Clip{
			Index:    index,
			Text:     span.Text,
			Start:    span.Start,
			End:      span.End,
			Filename: filename,
		})
	}

	manifestPath := filepath.Join(outDir, ManifestFilename)
	if err := writeManifest(manifestPath, &manifest); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrIO, err)
	}

	logger.Info("annotation file processed",
		"clips", len(manifest.Clips),
		"skipped", skipped,
		"manifest", manifestPath)

	return Result{ManifestPath: manifestPath, Clips: len(manifest.Clips), Skipped: skipped}, nil
}
