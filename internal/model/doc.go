// Package model defines the shared data types passed between Discovery and
// Polling: instruments, active sets, poller-local rate-control state, and the
// wire record types emitted to the rotating JSONL logs.
//
// Conventions:
//   - Timestamps: int64 milliseconds since Unix epoch, UTC
//   - instrument_key = venue + ":" + poll_key is the global primary key
//   - all wire records carry schema_version; readers must tolerate unknown fields
package model
