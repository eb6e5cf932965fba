// Package scheduler runs one venue's polling core: eligibility filtering
// against backoff and AIMD state, bounded dispatch to a per-worker-connection
// pool, result collection and normalization, and telemetry emission. It
// generalizes the teacher's internal/poller semaphore-bounded REST poller
// (one-shot fan-out per cycle) into a persistent per-tick scheduler driving
// an AIMD-controlled, backoff-aware dispatch queue.
package scheduler
