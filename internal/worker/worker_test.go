package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"scribe2clips/internal/audio"
	"scribe2clips/internal/extract"
	"scribe2clips/internal/pipeline"
)

// fakeService writes stub clip files without shelling out.
type fakeService struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeService) Extract(ctx context.Context, req audio.Request) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return os.WriteFile(req.OutPath, []byte("RIFF"), 0o644)
}

func setupFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "session.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func writeAnnotation(t *testing.T, dir, name string, spans []pipeline.Span) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := pipeline.SaveAnnotation(path, spans); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions(dir string) Options {
	return Options{
		Dir:        dir,
		SampleRate: 24000,
		Channels:   1,
		Service:    &fakeService{},
	}
}

func TestRun_NoSource(t *testing.T) {
	dir := t.TempDir()
	writeAnnotation(t, dir, "a.json", []pipeline.Span{{Text: "x", Start: 0, End: 1}})

	_, err := Run(context.Background(), testOptions(dir))
	if err == nil {
		t.Fatal("expected error without an audio source")
	}
	if !errors.Is(err, extract.ErrSource) {
		t.Errorf("error should classify as ErrSource, got %v", err)
	}
}

func TestRun_AmbiguousSource(t *testing.T) {
	dir := setupFolder(t)
	if err := os.WriteFile(filepath.Join(dir, "extra.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeAnnotation(t, dir, "a.json", []pipeline.Span{{Text: "x", Start: 0, End: 1}})

	if _, err := Run(context.Background(), testOptions(dir)); err == nil {
		t.Fatal("expected error with two audio sources")
	}
}

func TestRun_NoAnnotations(t *testing.T) {
	dir := setupFolder(t)

	if _, err := Run(context.Background(), testOptions(dir)); err == nil {
		t.Fatal("expected error with no annotation files")
	}
}

// One bad file must not stop its siblings, and the run itself succeeds with
// the failure recorded in the results.
func TestRun_PerFileIsolation(t *testing.T) {
	dir := setupFolder(t)
	writeAnnotation(t, dir, "good.json", []pipeline.Span{
		{Text: "fine", Start: 0, End: 2},
	})
	badPath := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(badPath, []byte("{not an array"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := Run(context.Background(), testOptions(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	byName := map[string]FileResult{}
	for _, r := range results {
		byName[filepath.Base(r.File)] = r
	}

	if byName["broken.json"].Err == nil {
		t.Error("broken.json should have failed")
	}
	if byName["good.json"].Err != nil {
		t.Errorf("good.json should have succeeded: %v", byName["good.json"].Err)
	}
	if byName["good.json"].Clips != 1 {
		t.Errorf("good.json clips = %d, want 1", byName["good.json"].Clips)
	}
	if !Failed(results) {
		t.Error("Failed() should report the broken file")
	}

	// The good file's manifest exists; the broken file produced none.
	if _, err := os.Stat(filepath.Join(dir, "good", extract.ManifestFilename)); err != nil {
		t.Errorf("good manifest missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken", extract.ManifestFilename)); !os.IsNotExist(err) {
		t.Error("broken file must not publish a manifest")
	}
}

func TestRun_LockContention(t *testing.T) {
	dir := setupFolder(t)
	writeAnnotation(t, dir, "a.json", []pipeline.Span{{Text: "x", Start: 0, End: 1}})

	held := flock.New(filepath.Join(dir, lockFilename))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("test lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	if _, err := Run(context.Background(), testOptions(dir)); err == nil {
		t.Fatal("expected error while the folder lock is held")
	}
}

// Parallel workers must produce the same manifests as a sequential run:
// files are independent and each owns its output directory.
func TestRun_ParallelMatchesSequential(t *testing.T) {
	spansA := []pipeline.Span{
		{Text: "a one", Start: 0, End: 2},
		{Text: "a two", Start: 3, End: 5},
	}
	spansB := []pipeline.Span{
		{Text: "b one", Start: 1, End: 4},
	}

	runWith := func(workers int) (string, string) {
		dir := setupFolder(t)
		writeAnnotation(t, dir, "a.json", spansA)
		writeAnnotation(t, dir, "b.json", spansB)

		opts := testOptions(dir)
		opts.Workers = workers
		results, err := Run(context.Background(), opts)
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		if Failed(results) {
			t.Fatalf("Run(workers=%d) had file failures: %+v", workers, results)
		}

		a, err := os.ReadFile(filepath.Join(dir, "a", extract.ManifestFilename))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(dir, "b", extract.ManifestFilename))
		if err != nil {
			t.Fatal(err)
		}
		return string(a), string(b)
	}

	seqA, seqB := runWith(1)
	parA, parB := runWith(3)

	if seqA != parA || seqB != parB {
		t.Error("parallel run produced different manifests than sequential run")
	}
}

func TestDiscoverAnnotations(t *testing.T) {
	dir := setupFolder(t)
	writeAnnotation(t, dir, "b.json", []pipeline.Span{{Text: "x", Start: 0, End: 1}})
	writeAnnotation(t, dir, "a.json", []pipeline.Span{{Text: "x", Start: 0, End: 1}})
	// Output subdirectories and non-JSON files are ignored.
	if err := os.MkdirAll(filepath.Join(dir, "old", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "old", extract.ManifestFilename), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := discoverAnnotations(dir)
	if err != nil {
		t.Fatalf("discoverAnnotations: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 annotation files, got %d: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "a.json" || filepath.Base(files[1]) != "b.json" {
		t.Errorf("files not in name order: %v", files)
	}
}

// Probe failure on an existing file degrades to an unknown duration rather
// than failing the run, so out-of-range spans simply pass rule three.
func TestRun_ProbeFailureDegrades(t *testing.T) {
	dir := setupFolder(t)
	writeAnnotation(t, dir, "a.json", []pipeline.Span{
		{Text: "huge", Start: 0, End: 1e9},
	})

	opts := testOptions(dir)
	opts.FFprobe = filepath.Join(dir, "no-such-ffprobe")

	results, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("file failed: %v", results[0].Err)
	}
	if results[0].Clips != 1 {
		t.Errorf("clips = %d, want 1 (bounds check skipped)", results[0].Clips)
	}
}
