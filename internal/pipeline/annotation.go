package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadAnnotation reads an annotation file: a JSON array of spans where
// every element must carry text plus numeric start and end. Speaker and
// rating are optional. Structural violations fail the whole file.
func LoadAnnotation(path string) ([]Span, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation: %w", err)
	}

	var raw []struct {
		Text    *string  `json:"text"`
		Start   *float64 `json:"start"`
		End     *float64 `json:"end"`
		Speaker string   `json:"speaker"`
		Rating  string   `json:"rating"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse annotation: %w", err)
	}

	spans := make([]Span, 0, len(raw))
	for i, r := range raw {
		if r.Text == nil || r.Start == nil || r.End == nil {
			return nil, fmt.Errorf("annotation segment %d: missing text, start, or end", i+1)
		}
		spans = append(spans, Span{
			Text:    *r.Text,
			Start:   *r.Start,
			End:     *r.End,
			Speaker: r.Speaker,
			Rating:  r.Rating,
		})
	}
	return spans, nil
}

// SaveAnnotation writes spans as indented JSON via a temp file + rename, so
// a crash mid-write never leaves a partial annotation at the final path.
func SaveAnnotation(path string, spans []Span) error {
	data, err := json.MarshalIndent(spans, "", "  ")
	if err != nil {
		return fmt.Errorf("encode annotation: %w", err)
	}
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("write annotation: %w", err)
	}
	return nil
}

// SplitByRating writes one annotation file per rating present, named
// <stem>_<rating>.json beside the input. Order within each shard preserves
// input order. Returns the written paths.
func SplitByRating(path string, spans []Span) ([]string, error) {
	groups := make(map[string][]Span)
	for _, s := range spans {
		rating := s.EffectiveRating()
		groups[rating] = append(groups[rating], s)
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	var written []string
	for _, rating := range []string{RatingGood, RatingOK, RatingBad, RatingUnrated} {
		group := groups[rating]
		if len(group) == 0 {
			continue
		}
		out := fmt.Sprintf("%s_%s.json", stem, rating)
		if err := SaveAnnotation(out, group); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// FilterRatings keeps spans whose rating is in keep; an empty keep list
// keeps everything. Filtering happens before validation so clip indices
// stay dense over the spans actually processed.
func FilterRatings(spans []Span, keep []string) []Span {
	if len(keep) == 0 {
		return spans
	}
	allowed := make(map[string]bool, len(keep))
	for _, r := range keep {
		allowed[strings.ToLower(strings.TrimSpace(r))] = true
	}
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if allowed[s.EffectiveRating()] {
			out = append(out, s)
		}
	}
	return out
}

// writeFileAtomic writes data to path atomically using a temp file + rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmp = nil

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
