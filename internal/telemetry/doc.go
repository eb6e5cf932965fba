// Package telemetry aggregates per-venue poll_stats deltas and samples
// poll_errors at a bounded rate, mirroring the teacher's preference for
// small, dependency-injected collaborators over global counters.
package telemetry
