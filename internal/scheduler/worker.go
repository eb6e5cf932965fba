package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mdragan85/venuepoll/internal/ringbuf"
	"github.com/mdragan85/venuepoll/internal/venue"
)

// workerPool runs a fixed number of long-lived goroutines, each holding one
// dedicated venue.Client for its lifetime (per-worker connection isolation,
// per §4.4). Jobs are pulled from a shared channel; results are pushed to a
// shared ringbuf.Buffer the scheduler goroutine drains non-blockingly.
type workerPool struct {
	jobs    chan job
	results *ringbuf.Buffer[result]

	newClient func() venue.Client
	timeout   time.Duration

	wg sync.WaitGroup
}

func newWorkerPool(size int, newClient func() venue.Client, timeout time.Duration) *workerPool {
	return &workerPool{
		jobs:      make(chan job, size),
		results:   ringbuf.New[result](size * 2),
		newClient: newClient,
		timeout:   timeout,
	}
}

// start spawns size worker goroutines, each running until ctx is done or the
// jobs channel is closed.
func (p *workerPool) start(ctx context.Context, size int) {
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *workerPool) run(ctx context.Context) {
	defer p.wg.Done()
	client := p.newClient()

	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			p.fetch(ctx, client, j)
		}
	}
}

func (p *workerPool) fetch(ctx context.Context, client venue.Client, j job) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	raw, obTsMs, err := client.GetOrderbook(fetchCtx, j.pollKey)
	latencyMs := time.Since(start).Milliseconds()

	p.results.Send(result{job: j, raw: raw, obTsMs: obTsMs, err: err, latencyMs: latencyMs})
}

// submit enqueues j for dispatch, returning false if the worker pool is
// saturated (the scheduler should retry the key on a later tick).
func (p *workerPool) submit(j job) bool {
	select {
	case p.jobs <- j:
		return true
	default:
		return false
	}
}

// drainResults returns all results completed since the last call.
func (p *workerPool) drainResults() []result {
	return p.results.DrainTo(0)
}

// stop closes the jobs channel and waits for all workers to exit.
func (p *workerPool) stop() {
	close(p.jobs)
	p.wg.Wait()
}
