package writer

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleRecord struct {
	Value string `json:"value"`
}

func newTestWriter(t *testing.T, root string) *RotatingWriter {
	t.Helper()
	return New(root, "novx", "orderbooks", "orderbooks", Config{
		FsyncInterval: time.Hour, // rely on count trigger / Stop in tests
		FsyncRecords:  1000,
	}, nil)
}

func startAndStop(t *testing.T, w *RotatingWriter, appends func()) {
	t.Helper()
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	appends()
	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestRotatingWriter_BasicAppend(t *testing.T) {
	root := t.TempDir()
	w := newTestWriter(t, root)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	startAndStop(t, w, func() {
		for i := 0; i < 5; i++ {
			if err := w.Append(ts, sampleRecord{Value: "a"}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}
	})

	path := filepath.Join(root, "novx", "orderbooks", "date=2026-03-01", "orderbooks.part-0000.jsonl")
	lines := readLines(t, path)
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	var rec sampleRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal line: %v", err)
	}
	if rec.Value != "a" {
		t.Errorf("rec.Value = %q, want a", rec.Value)
	}
}

func TestRotatingWriter_UTCDayRollover(t *testing.T) {
	root := t.TempDir()
	w := newTestWriter(t, root)

	beforeMidnight := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC).UnixMilli()
	afterMidnight := time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC).UnixMilli()

	startAndStop(t, w, func() {
		w.Append(beforeMidnight, sampleRecord{Value: "before"})
		w.Append(afterMidnight, sampleRecord{Value: "after"})
	})

	day1 := filepath.Join(root, "novx", "orderbooks", "date=2026-03-01", "orderbooks.part-0000.jsonl")
	day2 := filepath.Join(root, "novx", "orderbooks", "date=2026-03-02", "orderbooks.part-0000.jsonl")

	if lines := readLines(t, day1); len(lines) != 1 {
		t.Fatalf("day1 lines = %d, want 1", len(lines))
	}
	if lines := readLines(t, day2); len(lines) != 1 {
		t.Fatalf("day2 lines = %d, want 1", len(lines))
	}
}

func TestRotatingWriter_PartContinuityAcrossRestart(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC).UnixMilli()

	w1 := newTestWriter(t, root)
	startAndStop(t, w1, func() {
		w1.Append(ts, sampleRecord{Value: "first-run"})
	})

	// Simulate a restart: a fresh writer pointed at the same directory must
	// continue numbering from max(existing)+1, not restart at 0000.
	w2 := newTestWriter(t, root)
	startAndStop(t, w2, func() {
		w2.Append(ts, sampleRecord{Value: "second-run"})
	})

	part1 := filepath.Join(root, "novx", "orderbooks", "date=2026-03-01", "orderbooks.part-0000.jsonl")
	part2 := filepath.Join(root, "novx", "orderbooks", "date=2026-03-01", "orderbooks.part-0001.jsonl")

	if lines := readLines(t, part1); len(lines) != 1 {
		t.Fatalf("part-0000 lines = %d, want 1", len(lines))
	}
	if lines := readLines(t, part2); len(lines) != 1 {
		t.Fatalf("part-0001 lines = %d, want 1 (restart should continue numbering)", len(lines))
	}
}

func TestRotatingWriter_StatsTrackRecordsAndFlushes(t *testing.T) {
	root := t.TempDir()
	w := newTestWriter(t, root)
	ts := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC).UnixMilli()

	startAndStop(t, w, func() {
		for i := 0; i < 3; i++ {
			w.Append(ts, sampleRecord{Value: "x"})
		}
	})

	stats := w.Stats()
	if stats.RecordsWritten != 3 {
		t.Errorf("RecordsWritten = %d, want 3", stats.RecordsWritten)
	}
	if stats.Flushes < 1 {
		t.Errorf("Flushes = %d, want >= 1 (final flush on Stop)", stats.Flushes)
	}
}
