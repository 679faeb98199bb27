package pipeline

// Rating values applied to spans during external review.
const (
	RatingUnrated = "unrated"
	RatingGood    = "good"
	RatingOK      = "ok"
	RatingBad     = "bad"
)

// Span is one sentence-level time range with aggregated text for a single
// speaker. Spans are the unit that is reviewed, rated, and clipped.
type Span struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Rating  string  `json:"rating,omitempty"`
}

// EffectiveRating returns the span's rating, defaulting to unrated when no
// review has touched it yet.
func (s Span) EffectiveRating() string {
	if s.Rating == "" {
		return RatingUnrated
	}
	return s.Rating
}
