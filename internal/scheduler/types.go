package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// job is one dispatched fetch, correlated to its eventual result by
// requestID so log lines from dispatch and completion can be tied together.
type job struct {
	key            string // instrument_key = venue:poll_key
	pollKey        string
	requestID      uuid.UUID
	dispatchedAtMs int64
}

// result is one completed fetch, handed back from a worker to the scheduler
// goroutine for processing.
type result struct {
	job       job
	raw       []byte
	obTsMs    *int64
	err       error
	latencyMs int64
}
