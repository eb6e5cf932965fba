package backoff

import "time"

// Store holds the per-instrument backoff states for one venue. It is owned
// exclusively by that venue's scheduler goroutine; no locking is needed.
type Store struct {
	cfg    Config
	states map[string]State
}

// NewStore creates an empty backoff store.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg, states: make(map[string]State)}
}

// Eligible reports whether instrumentKey may be dispatched at now: either it
// has no backoff entry, or its deadline has passed.
func (s *Store) Eligible(instrumentKey string, now time.Time) bool {
	st, ok := s.states[instrumentKey]
	if !ok {
		return true
	}
	return st.Eligible(now)
}

// RecordFailure advances the backoff schedule for instrumentKey.
func (s *Store) RecordFailure(instrumentKey string, now time.Time) State {
	next := Advance(s.cfg, s.states[instrumentKey], now)
	s.states[instrumentKey] = next
	return next
}

// RecordSuccess clears any backoff entry for instrumentKey (equivalent to n=0).
func (s *Store) RecordSuccess(instrumentKey string) {
	delete(s.states, instrumentKey)
}

// GC removes backoff entries for instrument keys no longer in liveKeys. It
// should be called once per tick after the ActiveSet is refreshed.
func (s *Store) GC(liveKeys map[string]struct{}) {
	for k := range s.states {
		if _, ok := liveKeys[k]; !ok {
			delete(s.states, k)
		}
	}
}

// Len reports the number of tracked backoff entries (test/telemetry helper).
func (s *Store) Len() int {
	return len(s.states)
}
