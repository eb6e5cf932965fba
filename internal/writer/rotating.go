package writer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/mdragan85/venuepoll/internal/ringbuf"
)

// Config holds the rotating writer's flush/fsync policy.
type Config struct {
	FsyncInterval time.Duration
	FsyncRecords  int
}

// entry pairs a record with the wall-clock ms used to decide its UTC-day partition.
type entry struct {
	tsMs int64
	data []byte
}

// RotatingWriter appends JSON records, one per line, to UTC-day-partitioned,
// monotonically part-numbered files. Exactly one component owns a given
// (venue, stream): markets by Discovery, orderbook/poll_stats/poll_errors by
// Polling. There is never cross-writer sharing of a single file.
type RotatingWriter struct {
	venueDir   string // <root>/<venue>/<stream>
	filePrefix string
	cfg        Config
	logger     *slog.Logger

	input *ringbuf.Buffer[entry]

	f           *os.File
	bufw        *bufio.Writer
	currentDate string
	partNum     int
	sinceFsync  int
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	metrics Metrics
}

// Metrics reports writer health.
type Metrics struct {
	RecordsWritten int64
	Flushes        int64
	Rollovers      int64
	WriteErrors    int64
}

// New creates a RotatingWriter for one (venue, stream). filePrefix is the
// file-name stem used before ".part-NNNN.jsonl" (e.g. "orderbooks").
func New(root, venue, stream, filePrefix string, cfg Config, logger *slog.Logger) *RotatingWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RotatingWriter{
		venueDir:   filepath.Join(root, venue, stream),
		filePrefix: filePrefix,
		cfg:        cfg,
		logger:     logger,
		input:      ringbuf.New[entry](256),
	}
}

// Start begins the consume and flush-ticker goroutines.
func (w *RotatingWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FsyncInterval)

	w.wg.Add(2)
	go w.consumeLoop()
	go w.flushLoop()

	w.logger.Info("rotating writer started", "dir", w.venueDir, "prefix", w.filePrefix)
	return nil
}

// Append enqueues a record for the given wall-clock timestamp (ms, UTC). The
// record is marshaled immediately so a caller's value can be mutated right
// after the call returns.
func (w *RotatingWriter) Append(tsMs int64, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("writer: marshal record: %w", err)
	}
	if !w.input.Send(entry{tsMs: tsMs, data: data}) {
		return fmt.Errorf("writer: closed")
	}
	return nil
}

// Stop drains pending records (best-effort, up to ctx's deadline), flushes
// and fsyncs, then closes the current file.
func (w *RotatingWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping rotating writer", "dir", w.venueDir)

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("rotating writer stop timed out", "dir", w.venueDir)
	}

	return w.flushAndClose()
}

// Stats returns current metrics.
func (w *RotatingWriter) Stats() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

func (w *RotatingWriter) consumeLoop() {
	defer w.wg.Done()
	for {
		e, ok := w.input.Receive()
		if !ok {
			return
		}
		if err := w.handle(e); err != nil {
			w.logger.Error("rotating writer: write failed", "error", err, "dir", w.venueDir)
			w.mu.Lock()
			w.metrics.WriteErrors++
			w.mu.Unlock()
		}
	}
}

func (w *RotatingWriter) flushLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			if err := w.flush(); err != nil {
				w.logger.Error("rotating writer: periodic flush failed", "error", err, "dir", w.venueDir)
			}
		}
	}
}

func (w *RotatingWriter) handle(e entry) error {
	date := utcDate(e.tsMs)
	if date != w.currentDate {
		if err := w.rollover(date); err != nil {
			return err
		}
	}

	if _, err := w.bufw.Write(e.data); err != nil {
		return err
	}
	if err := w.bufw.WriteByte('\n'); err != nil {
		return err
	}

	w.mu.Lock()
	w.metrics.RecordsWritten++
	w.mu.Unlock()

	w.sinceFsync++
	if w.sinceFsync >= w.cfg.FsyncRecords {
		return w.flush()
	}
	return nil
}

// flush flushes the buffered writer and fsyncs the underlying file.
// Per-record flush is explicitly not done; this is called on a count or time
// trigger, whichever comes first.
func (w *RotatingWriter) flush() error {
	if w.bufw == nil {
		return nil
	}
	if err := w.bufw.Flush(); err != nil {
		return err
	}
	if err := w.f.Sync(); err != nil {
		return err
	}
	w.sinceFsync = 0
	w.mu.Lock()
	w.metrics.Flushes++
	w.mu.Unlock()
	return nil
}

func (w *RotatingWriter) flushAndClose() error {
	if w.bufw == nil {
		return nil
	}
	err := w.flush()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.bufw = nil
	w.f = nil
	return err
}

// rollover closes the current file (if any) and opens the first part file
// for the new UTC date, continuing the part-number sequence across restarts:
// it scans existing part files in the date directory and starts at max+1.
func (w *RotatingWriter) rollover(date string) error {
	if w.bufw != nil {
		if err := w.flushAndClose(); err != nil {
			return fmt.Errorf("writer: rollover flush previous file: %w", err)
		}
		w.mu.Lock()
		w.metrics.Rollovers++
		w.mu.Unlock()
	}

	dir := filepath.Join(w.venueDir, "date="+date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writer: mkdir %s: %w", dir, err)
	}

	part, err := nextPartNumber(dir, w.filePrefix)
	if err != nil {
		return err
	}

	name := filepath.Join(dir, fmt.Sprintf("%s.part-%04d.jsonl", w.filePrefix, part))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("writer: open %s: %w", name, err)
	}

	w.f = f
	w.bufw = bufio.NewWriter(f)
	w.currentDate = date
	w.partNum = part
	w.sinceFsync = 0

	w.logger.Info("rotating writer opened new part", "file", name)
	return nil
}

func utcDate(tsMs int64) string {
	return time.UnixMilli(tsMs).UTC().Format("2006-01-02")
}

func partPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\.part-(\d+)\.jsonl$`)
}

// nextPartNumber scans dir for existing "<prefix>.part-NNNN.jsonl" files and
// returns max(existing)+1, or 0 if none exist.
func nextPartNumber(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("writer: list %s: %w", dir, err)
	}

	re := partPattern(prefix)
	var found []int
	for _, e := range entries {
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(m[1], "%d", &n); err == nil {
			found = append(found, n)
		}
	}
	if len(found) == 0 {
		return 0, nil
	}
	sort.Ints(found)
	return found[len(found)-1] + 1, nil
}
