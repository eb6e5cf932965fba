package telemetry

import "github.com/mdragan85/venuepoll/internal/model"

// Counters accumulates one venue's poll outcomes between stats emissions.
// It is owned exclusively by that venue's scheduler goroutine.
type Counters struct {
	Submitted int64
	Succeeded int64
	Failed    int64
	HTTP4xx   int64
	HTTP5xx   int64
	HTTP429   int64
	Timeouts  int64
}

// RecordSubmit counts one dispatched fetch.
func (c *Counters) RecordSubmit() {
	c.Submitted++
}

// RecordSuccess counts one successfully normalized fetch.
func (c *Counters) RecordSuccess() {
	c.Succeeded++
}

// RecordFailure counts one failed fetch, breaking it down by HTTP-ish kind.
func (c *Counters) RecordFailure(kind string) {
	c.Failed++
	switch kind {
	case "http_429":
		c.HTTP429++
	case "http_4xx":
		c.HTTP4xx++
	case "http_5xx":
		c.HTTP5xx++
	case "timeout":
		c.Timeouts++
	}
}

// Snapshot builds a PollStats record from the accumulated deltas and the
// venue's current AIMD/cooldown state, then resets the counters.
func (c *Counters) Snapshot(venue string, tsMs int64, activeCount int, p50, p95 int64, cooldownRemainingMs int64, inflightLimit, maxWorkers int) model.PollStats {
	stats := model.PollStats{
		Venue:               venue,
		TsMs:                tsMs,
		ActiveCount:         activeCount,
		Submitted:           c.Submitted,
		Succeeded:           c.Succeeded,
		Failed:              c.Failed,
		HTTP4xx:             c.HTTP4xx,
		HTTP5xx:             c.HTTP5xx,
		HTTP429:             c.HTTP429,
		Timeouts:            c.Timeouts,
		P50LatencyMs:        p50,
		P95LatencyMs:        p95,
		CooldownRemainingMs: cooldownRemainingMs,
		InflightLimit:       inflightLimit,
		MaxWorkers:          maxWorkers,
	}
	*c = Counters{}
	return stats
}
