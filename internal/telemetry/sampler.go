package telemetry

import "time"

// ErrorSampler is a simple token bucket bounding poll_errors emission to
// MaxPerSecond, so a venue in persistent failure does not flood the errors
// log. Every observed error still counts toward PollStats; the sampler only
// gates the diagnostic PollError record.
type ErrorSampler struct {
	maxPerSecond float64
	tokens       float64
	lastRefill   time.Time
}

// NewErrorSampler creates a sampler allowing up to maxPerSecond PollError
// records per second, starting with a full bucket.
func NewErrorSampler(maxPerSecond int) *ErrorSampler {
	rate := float64(maxPerSecond)
	if rate <= 0 {
		rate = 1
	}
	return &ErrorSampler{maxPerSecond: rate, tokens: rate}
}

// Allow reports whether the caller may emit a PollError record at now,
// consuming a token if so.
func (s *ErrorSampler) Allow(now time.Time) bool {
	if s.lastRefill.IsZero() {
		s.lastRefill = now
	}
	elapsed := now.Sub(s.lastRefill).Seconds()
	if elapsed > 0 {
		s.tokens = min(s.maxPerSecond, s.tokens+elapsed*s.maxPerSecond)
		s.lastRefill = now
	}
	if s.tokens < 1 {
		return false
	}
	s.tokens--
	return true
}
