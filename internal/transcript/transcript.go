// Package transcript models raw word-level speech transcripts.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"unicode"
)

// Token types in an ElevenLabs word-level export.
const (
	TypeWord       = "word"
	TypeSpacing    = "spacing"
	TypeAudioEvent = "audio_event"
)

// Token is one entry from a word-level transcript: a word, the spacing
// between words, or a non-speech audio event.
type Token struct {
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	SpeakerID   string  `json:"speaker_id,omitempty"`
	SpeakerName string  `json:"speaker_name,omitempty"`
}

// Load reads a transcript JSON file. Both a bare token array and the full
// export wrapper with a "words" field are accepted.
func Load(path string) ([]Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	trimmed := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tokens []Token
		if err := json.Unmarshal(data, &tokens); err != nil {
			return nil, fmt.Errorf("parse transcript: %w", err)
		}
		return tokens, nil
	}

	var export struct {
		Words []Token `json:"words"`
	}
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return export.Words, nil
}

// SpeakerStat summarizes one speaker's presence in a transcript.
type SpeakerStat struct {
	ID    string
	Name  string
	Count int
}

// Speakers counts tokens per speaker and drops speakers with fewer than
// minRecords tokens. Tokens without a speaker id are not counted. Results
// are sorted by speaker id.
func Speakers(tokens []Token, minRecords int) []SpeakerStat {
	counts := make(map[string]*SpeakerStat)
	for _, t := range tokens {
		if t.SpeakerID == "" {
			continue
		}
		stat, ok := counts[t.SpeakerID]
		if !ok {
			stat = &SpeakerStat{ID: t.SpeakerID, Name: t.SpeakerName}
			counts[t.SpeakerID] = stat
		}
		stat.Count++
		if stat.Name == "" {
			stat.Name = t.SpeakerName
		}
	}

	var stats []SpeakerStat
	for _, stat := range counts {
		if stat.Count >= minRecords {
			stats = append(stats, *stat)
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}
