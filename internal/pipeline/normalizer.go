package pipeline

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"scribe2clips/internal/transcript"
)

// NormalizerOptions configures sentence assembly.
type NormalizerOptions struct {
	Speaker        string  // speaker_id to keep; empty keeps all tokens
	PauseThreshold float64 // seconds; <= 0 disables the pause rule
	Terminators    string  // runes that close a sentence
}

// Normalize merges word-level tokens for one speaker into ordered
// sentence-level spans. A sentence closes when a token's text ends in a
// terminal rune, or when the gap to the previous word exceeds the pause
// threshold; a non-empty trailing buffer is flushed at end of stream.
func Normalize(tokens []transcript.Token, opts NormalizerOptions) []Span {
	kept := make([]transcript.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Type != transcript.TypeWord && t.Type != transcript.TypeSpacing {
			continue
		}
		if opts.Speaker != "" && t.SpeakerID != opts.Speaker {
			continue
		}
		kept = append(kept, t)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })

	var spans []Span
	var buf []transcript.Token

	flush := func() {
		if span, ok := buildSpan(buf, opts.Speaker); ok {
			spans = append(spans, span)
		}
		buf = buf[:0]
	}

	for _, t := range kept {
		if len(buf) > 0 && opts.PauseThreshold > 0 {
			if prev, ok := lastWord(buf); ok && t.Start-prev.End > opts.PauseThreshold {
				flush()
			}
		}

		buf = append(buf, t)

		if endsWithTerminator(t.Text, opts.Terminators) {
			flush()
		}
	}
	flush()

	return spans
}

// buildSpan turns the accumulated tokens into one span. Spacing tokens shape
// the text but never the timing; a buffer with no word tokens, or whose text
// normalizes to nothing, yields no span.
func buildSpan(buf []transcript.Token, speaker string) (Span, bool) {
	var first, last *transcript.Token
	var b strings.Builder
	for i := range buf {
		b.WriteString(buf[i].Text)
		if buf[i].Type != transcript.TypeWord {
			continue
		}
		if first == nil {
			first = &buf[i]
		}
		last = &buf[i]
	}
	if first == nil {
		return Span{}, false
	}

	text := norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
	if text == "" {
		return Span{}, false
	}

	return Span{Text: text, Start: first.Start, End: last.End, Speaker: speaker}, true
}

func lastWord(buf []transcript.Token) (transcript.Token, bool) {
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i].Type == transcript.TypeWord {
			return buf[i], true
		}
	}
	return transcript.Token{}, false
}

func endsWithTerminator(text, terminators string) bool {
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	if trimmed == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(trimmed)
	return strings.ContainsRune(terminators, r)
}
