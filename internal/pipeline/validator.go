package pipeline

// Reason identifies why a span was rejected by Validate.
type Reason string

// Rejection reasons, in the order the rules are applied.
const (
	NegativeStart       Reason = "negative_start"
	NonPositiveDuration Reason = "non_positive_duration"
	EndBeyondSource     Reason = "end_beyond_source"
	BelowMinDuration    Reason = "below_min_duration"
)

// Validate applies the temporal rules to one span; the first failing rule
// wins and an empty Reason means the span is usable. duration <= 0 means the
// source duration is unknown and the bounds rule is skipped; minDuration
// <= 0 disables the minimum-length rule.
func Validate(s Span, duration, minDuration float64) Reason {
	if s.Start < 0 {
		return NegativeStart
	}
	if s.End <= s.Start {
		return NonPositiveDuration
	}
	if duration > 0 && s.End > duration {
		return EndBeyondSource
	}
	if minDuration > 0 && s.End-s.Start < minDuration {
		return BelowMinDuration
	}
	return ""
}
