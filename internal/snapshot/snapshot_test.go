package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdragan85/venuepoll/internal/model"
)

func TestWriteReadRoundTrip(t *testing.T) {
	root := t.TempDir()
	set := model.NewActiveSet("novx", []model.Instrument{
		{Venue: "novx", PollKey: "A", MarketID: "m1", ExpirationMs: 9_999_999_999_999},
	}, 1000, 1500)

	if err := Write(root, set); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(root, "novx")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Count != 1 || got.AsofMs != 1500 {
		t.Fatalf("got %+v, want count=1 asof=1500", got)
	}
	if _, ok := got.Instruments["novx:A"]; !ok {
		t.Fatalf("expected instrument novx:A in round-tripped snapshot")
	}
}

func TestReadMissing(t *testing.T) {
	root := t.TempDir()
	_, err := Read(root, "novx")
	if !errors.Is(err, ErrSnapshotMissing) {
		t.Fatalf("err = %v, want ErrSnapshotMissing", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	root := t.TempDir()
	dir := Dir(root, "novx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(root, "novx"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Read(root, "novx")
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("err = %v, want ErrSnapshotCorrupt", err)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	set := model.NewActiveSet("novx", nil, 0, 10)
	if err := Write(root, set); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(Dir(root, "novx"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != filepath.Base(Path(root, "novx")) {
		t.Fatalf("expected exactly one file (the snapshot), got %v", entries)
	}
}

func TestReaderPollSkipsUnchangedMtime(t *testing.T) {
	root := t.TempDir()
	set := model.NewActiveSet("novx", []model.Instrument{
		{Venue: "novx", PollKey: "A", ExpirationMs: 9_999_999_999_999},
	}, 0, 100)
	if err := Write(root, set); err != nil {
		t.Fatal(err)
	}

	r := NewReader(root, "novx")
	_, changed, err := r.Poll()
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !changed {
		t.Fatalf("first poll should report changed=true")
	}

	_, changed, err = r.Poll()
	if err != nil {
		t.Fatalf("second Poll failed: %v", err)
	}
	if changed {
		t.Fatalf("second poll with unchanged mtime should report changed=false")
	}
}

func TestReaderPollMissing(t *testing.T) {
	root := t.TempDir()
	r := NewReader(root, "novx")
	_, _, err := r.Poll()
	if !errors.Is(err, ErrSnapshotMissing) {
		t.Fatalf("err = %v, want ErrSnapshotMissing", err)
	}
}
