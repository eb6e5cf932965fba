// Package snapshot implements the Discovery-to-Polling handoff contract: one
// atomically-replaced JSON file per venue at
// <root>/<venue>/state/active_instruments.snapshot.json.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mdragan85/venuepoll/internal/model"
)

// ErrSnapshotMissing is returned by Read when no snapshot file exists yet.
var ErrSnapshotMissing = errors.New("snapshot: missing")

// ErrSnapshotCorrupt is returned by Read when the snapshot file cannot be parsed.
var ErrSnapshotCorrupt = errors.New("snapshot: corrupt")

// Dir returns the directory holding the snapshot file for a venue.
func Dir(root, venue string) string {
	return filepath.Join(root, venue, "state")
}

// Path returns the snapshot file path for a venue.
func Path(root, venue string) string {
	return filepath.Join(Dir(root, venue), "active_instruments.snapshot.json")
}

// wireSnapshot is the on-disk representation; kept distinct from model.ActiveSet
// so the wire key name (asof_ts_utc) is explicit regardless of in-memory naming.
type wireSnapshot struct {
	AsofTsUtc   int64                       `json:"asof_ts_utc"`
	Venue       string                      `json:"venue"`
	Count       int                         `json:"count"`
	Instruments map[string]model.Instrument `json:"instruments"`
}

// Write atomically replaces the snapshot file for set.Venue under root.
//
// The file is written to a sibling temp file in the same directory (so the
// final rename is guaranteed atomic on the same filesystem), fsync'd, then
// renamed over the target. A reader at any point sees either the prior
// complete file or the new complete file, never a partial one.
func Write(root string, set model.ActiveSet) error {
	dir := Dir(root, set.Venue)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}

	payload := wireSnapshot{
		AsofTsUtc:   set.AsofMs,
		Venue:       set.Venue,
		Count:       set.Count,
		Instruments: set.Instruments,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".active_instruments.snapshot.*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, Path(root, set.Venue)); err != nil {
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}

// Read parses the current snapshot file for venue under root.
func Read(root, venue string) (model.ActiveSet, error) {
	path := Path(root, venue)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ActiveSet{}, ErrSnapshotMissing
		}
		return model.ActiveSet{}, fmt.Errorf("snapshot: read %s: %w", path, err)
	}

	var payload wireSnapshot
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.ActiveSet{}, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	return model.ActiveSet{
		Venue:       payload.Venue,
		AsofMs:      payload.AsofTsUtc,
		Count:       payload.Count,
		Instruments: payload.Instruments,
	}, nil
}
