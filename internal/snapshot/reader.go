package snapshot

import (
	"os"

	"github.com/mdragan85/venuepoll/internal/model"
)

// Reader tracks the last observed asof timestamp and file mtime for one
// venue's snapshot, so the scheduler's hot path can skip re-parsing a file
// that has not actually changed since the last read.
type Reader struct {
	root  string
	venue string

	lastMtime int64
	lastAsof  int64
	lastSet   model.ActiveSet
	haveSet   bool
}

// NewReader creates a snapshot reader for one venue.
func NewReader(root, venue string) *Reader {
	return &Reader{root: root, venue: venue}
}

// Poll re-reads the snapshot if its mtime has changed since the last call,
// returning the current ActiveSet (freshly parsed or cached) and whether a
// new parse actually occurred.
func (r *Reader) Poll() (model.ActiveSet, bool, error) {
	info, err := os.Stat(Path(r.root, r.venue))
	if err != nil {
		if os.IsNotExist(err) {
			return model.ActiveSet{}, false, ErrSnapshotMissing
		}
		return model.ActiveSet{}, false, err
	}

	mtime := info.ModTime().UnixNano()
	if r.haveSet && mtime == r.lastMtime {
		return r.lastSet, false, nil
	}

	set, err := Read(r.root, r.venue)
	if err != nil {
		return model.ActiveSet{}, false, err
	}

	r.lastMtime = mtime
	r.lastAsof = set.AsofMs
	r.lastSet = set
	r.haveSet = true
	return set, true, nil
}

// Current returns the last successfully parsed ActiveSet, if any.
func (r *Reader) Current() (model.ActiveSet, bool) {
	return r.lastSet, r.haveSet
}
