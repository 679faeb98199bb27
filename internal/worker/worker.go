// Package worker runs the clip pipeline over a working folder: one audio
// source plus one or more annotation files.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scribe2clips/internal/audio"
	"scribe2clips/internal/extract"
)

// lockFilename guards a working folder against concurrent runs mutating the
// same output directories.
const lockFilename = ".scribe2clips.lock"

// Options configures a working-folder run.
type Options struct {
	Dir         string
	Files       []string // specific annotation files; empty discovers all
	Workers     int
	SampleRate  int
	Channels    int
	MinDuration float64
	Ratings     []string
	FFmpeg      string
	FFprobe     string
	Service     audio.Service // nil uses the ffmpeg binary
}

// FileResult records one annotation file's outcome.
type FileResult struct {
	File    string
	Clips   int
	Skipped int
	Err     error
}

// Failed reports whether any file in the run failed.
func Failed(results []FileResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Run processes the annotation files of one working folder. Files are
// independent: each failure is recorded in its result and never aborts
// sibling files. The returned error covers conditions that prevent the run
// from starting at all.
func Run(ctx context.Context, opts Options) ([]FileResult, error) {
	lock := flock.New(filepath.Join(opts.Dir, lockFilename))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire folder lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another run holds the lock on %s", opts.Dir)
	}
	defer lock.Unlock()

	src, svc, err := prepareSource(ctx, opts)
	if err != nil {
		return nil, err
	}

	files := opts.Files
	if len(files) == 0 {
		files, err = discoverAnnotations(opts.Dir)
		if err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no annotation files in %s", opts.Dir)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	logger := slog.Default().With("run_id", uuid.NewString())
	logger.Info("processing working folder",
		"dir", opts.Dir,
		"source", filepath.Base(src.Path),
		"files", len(files),
		"workers", workers)

	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			res, err := extract.Run(gctx, extract.Options{
				AnnotationPath: file,
				Source:         src,
				Service:        svc,
				SampleRate:     opts.SampleRate,
				Channels:       opts.Channels,
				MinDuration:    opts.MinDuration,
				Ratings:        opts.Ratings,
				Logger:         logger.With("file", filepath.Base(file)),
			})
			results[i] = FileResult{File: file, Clips: res.Clips, Skipped: res.Skipped, Err: err}
			if err != nil {
				logger.Error("annotation file failed", "file", filepath.Base(file), "err", err)
			}
			// File failures stay in the results; returning them here would
			// cancel sibling files through the group context.
			return nil
		})
	}
	g.Wait()

	return results, nil
}

// prepareSource discovers and probes the folder's single audio file. A
// probe failure on an existing file degrades to an unknown duration; a
// missing or ambiguous source fails the run.
func prepareSource(ctx context.Context, opts Options) (audio.Source, audio.Service, error) {
	path, err := audio.FindSource(opts.Dir)
	if err != nil {
		return audio.Source{}, nil, fmt.Errorf("%w: %w", extract.ErrSource, err)
	}
	if _, err := os.Stat(path); err != nil {
		return audio.Source{}, nil, fmt.Errorf("%w: %w", extract.ErrSource, err)
	}

	src, err := audio.Probe(ctx, opts.FFprobe, path)
	if err != nil {
		slog.Warn("probe failed, source duration unknown",
			"source", filepath.Base(path), "err", err)
		src = audio.Source{Path: path}
	}

	svc := opts.Service
	if svc == nil {
		svc = &audio.FFmpeg{Binary: opts.FFmpeg}
	}
	return src, svc, nil
}

// discoverAnnotations lists the working folder's top-level annotation files
// in name order. Manifests live inside output subdirectories and are never
// picked up.
func discoverAnnotations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read working folder: %w", extract.ErrIO, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
