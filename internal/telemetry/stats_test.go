package telemetry

import "testing"

func TestCountersSnapshotResets(t *testing.T) {
	var c Counters
	c.RecordSubmit()
	c.RecordSubmit()
	c.RecordSuccess()
	c.RecordFailure("http_429")

	stats := c.Snapshot("novx", 1000, 5, 10, 20, 0, 8, 16)
	if stats.Submitted != 2 || stats.Succeeded != 1 || stats.Failed != 1 || stats.HTTP429 != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Venue != "novx" || stats.ActiveCount != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Snapshot must reset the counters.
	again := c.Snapshot("novx", 2000, 5, 0, 0, 0, 8, 16)
	if again.Submitted != 0 || again.Succeeded != 0 || again.Failed != 0 {
		t.Fatalf("counters not reset: %+v", again)
	}
}

func TestRecordFailureBreakdown(t *testing.T) {
	var c Counters
	c.RecordFailure("http_4xx")
	c.RecordFailure("http_5xx")
	c.RecordFailure("timeout")
	c.RecordFailure("network")

	if c.Failed != 4 {
		t.Fatalf("Failed = %d, want 4", c.Failed)
	}
	if c.HTTP4xx != 1 || c.HTTP5xx != 1 || c.Timeouts != 1 {
		t.Fatalf("unexpected breakdown: %+v", c)
	}
}
