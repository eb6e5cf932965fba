package venue

import "time"

// Runtime bundles the small capability set a venue needs once resolved at
// startup: a Client and opaque Rules for Discovery's own use, a Normalizer
// for the scheduler, and a factory for the per-worker
// clients the scheduler's worker pool dispatches polls through. Built once
// by internal/wiring and handed to both cmd/run-discovery and cmd/run-logger.
type Runtime struct {
	Name string

	// Client serves Discovery's own Discover calls. For REST
	// venues this is the same shared client NewWorkerClient clones from; for
	// WS venues it is a dedicated connection distinct from worker connections.
	Client Client

	Normalizer Normalizer

	// Rules is passed verbatim as the rules argument to Client.Discover; its
	// concrete type is venue-specific (e.g. *novx.Rules, *ksh.Rules).
	Rules any

	MaxWorkers     int
	RequestTimeout time.Duration

	// NewWorkerClient returns a fresh Client for one scheduler worker to own
	// for its lifetime, isolating connection state (HTTP transport, or a
	// dedicated WebSocket) between concurrently polling workers.
	NewWorkerClient func() Client
}
