package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"scribe2clips/internal/extract"
)

// debounceDelay coalesces the event bursts editors and GUIs produce while
// saving an annotation file.
const debounceDelay = 500 * time.Millisecond

// Watch runs the clip pipeline on annotation files as they appear or change
// in the working folder. The source is discovered and probed once at start;
// a folder with no usable source fails fast. Returns nil on cancellation.
func Watch(ctx context.Context, opts Options) error {
	lock := flock.New(filepath.Join(opts.Dir, lockFilename))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire folder lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another run holds the lock on %s", opts.Dir)
	}
	defer lock.Unlock()

	src, svc, err := prepareSource(ctx, opts)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", opts.Dir, err)
	}

	logger := slog.Default().With("run_id", uuid.NewString())
	logger.Info("watching working folder",
		"dir", opts.Dir,
		"source", filepath.Base(src.Path))

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	ready := make(chan string)

	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case ev, open := <-watcher.Events:
			if !open {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, exists := timers[path]; exists {
				t.Reset(debounceDelay)
			} else {
				timers[path] = time.AfterFunc(debounceDelay, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					select {
					case ready <- path:
					case <-ctx.Done():
					}
				})
			}
			mu.Unlock()

		case err, open := <-watcher.Errors:
			if !open {
				return nil
			}
			logger.Warn("watcher error", "err", err)

		case path := <-ready:
			_, err := extract.Run(ctx, extract.Options{
				AnnotationPath: path,
				Source:         src,
				Service:        svc,
				SampleRate:     opts.SampleRate,
				Channels:       opts.Channels,
				MinDuration:    opts.MinDuration,
				Ratings:        opts.Ratings,
				Logger:         logger.With("file", filepath.Base(path)),
			})
			if err != nil {
				logger.Error("annotation file failed", "file", filepath.Base(path), "err", err)
			}
		}
	}
}
