package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAnnotation_Minimal(t *testing.T) {
	path := writeTestFile(t, "a.json",
		`[{"text": "Hello there.", "start": 0.5, "end": 2.0}]`)

	spans, err := LoadAnnotation(path)
	if err != nil {
		t.Fatalf("LoadAnnotation: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Text != "Hello there." || spans[0].Start != 0.5 || spans[0].End != 2.0 {
		t.Errorf("unexpected span: %+v", spans[0])
	}
	if spans[0].EffectiveRating() != RatingUnrated {
		t.Errorf("missing rating should read as unrated, got %q", spans[0].EffectiveRating())
	}
}

func TestLoadAnnotation_WithRating(t *testing.T) {
	path := writeTestFile(t, "a.json",
		`[{"text": "x", "start": 0, "end": 1, "rating": "good"}]`)

	spans, err := LoadAnnotation(path)
	if err != nil {
		t.Fatalf("LoadAnnotation: %v", err)
	}
	if spans[0].Rating != RatingGood {
		t.Errorf("rating = %q, want good", spans[0].Rating)
	}
}

func TestLoadAnnotation_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not an array", `{"text": "x"}`},
		{"non-object element", `["just a string"]`},
		{"missing end", `[{"text": "x", "start": 0}]`},
		{"missing text", `[{"start": 0, "end": 1}]`},
		{"non-numeric start", `[{"text": "x", "start": "zero", "end": 1}]`},
		{"broken json", `[{"text": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, "bad.json", tt.content)
			if _, err := LoadAnnotation(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSaveAnnotation_RoundTrip(t *testing.T) {
	spans := []Span{
		{Text: "First.", Start: 0, End: 1.5, Rating: RatingGood},
		{Text: "Second.", Start: 2.0, End: 3.25},
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := SaveAnnotation(path, spans); err != nil {
		t.Fatalf("SaveAnnotation: %v", err)
	}

	loaded, err := LoadAnnotation(path)
	if err != nil {
		t.Fatalf("LoadAnnotation: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(loaded))
	}
	for i := range spans {
		if loaded[i] != spans[i] {
			t.Errorf("span %d = %+v, want %+v", i, loaded[i], spans[i])
		}
	}
}

func TestSaveAnnotation_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := SaveAnnotation(path, []Span{{Text: "x", Start: 0, End: 1}}); err != nil {
		t.Fatalf("SaveAnnotation: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSplitByRating(t *testing.T) {
	spans := []Span{
		{Text: "a", Start: 0, End: 1, Rating: RatingGood},
		{Text: "b", Start: 1, End: 2, Rating: RatingBad},
		{Text: "c", Start: 2, End: 3, Rating: RatingGood},
		{Text: "d", Start: 3, End: 4}, // unrated
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	if err := SaveAnnotation(path, spans); err != nil {
		t.Fatal(err)
	}

	written, err := SplitByRating(path, spans)
	if err != nil {
		t.Fatalf("SplitByRating: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("expected 3 shards (good, bad, unrated), got %d: %v", len(written), written)
	}

	good, err := LoadAnnotation(filepath.Join(dir, "session_good.json"))
	if err != nil {
		t.Fatalf("load good shard: %v", err)
	}
	if len(good) != 2 || good[0].Text != "a" || good[1].Text != "c" {
		t.Errorf("good shard out of order or wrong: %+v", good)
	}

	if _, err := os.Stat(filepath.Join(dir, "session_ok.json")); !os.IsNotExist(err) {
		t.Error("empty rating group must not produce a shard")
	}

	unrated, err := LoadAnnotation(filepath.Join(dir, "session_unrated.json"))
	if err != nil {
		t.Fatalf("load unrated shard: %v", err)
	}
	if len(unrated) != 1 || unrated[0].Text != "d" {
		t.Errorf("unrated shard wrong: %+v", unrated)
	}
}

func TestFilterRatings(t *testing.T) {
	spans := []Span{
		{Text: "a", Rating: RatingGood},
		{Text: "b", Rating: RatingBad},
		{Text: "c"},
		{Text: "d", Rating: RatingOK},
	}

	if got := FilterRatings(spans, nil); len(got) != 4 {
		t.Errorf("empty keep list should keep all, got %d", len(got))
	}

	got := FilterRatings(spans, []string{"good", "ok"})
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "d" {
		t.Errorf("FilterRatings(good, ok) = %+v", got)
	}

	got = FilterRatings(spans, []string{"unrated"})
	if len(got) != 1 || got[0].Text != "c" {
		t.Errorf("unset rating should match unrated, got %+v", got)
	}

	// Case and whitespace in the keep list are tolerated.
	got = FilterRatings(spans, []string{" Good "})
	if len(got) != 1 || got[0].Text != "a" {
		t.Errorf("FilterRatings should normalize keep values, got %+v", got)
	}
}
