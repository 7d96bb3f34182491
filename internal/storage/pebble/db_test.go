package pebblestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
)

type testMetrics struct {
	read         int
	batchCommits int
	batchBytes   int
}

func (m *testMetrics) ObserveRead(d time.Duration, bytes int) { m.read += bytes }
func (m *testMetrics) ObserveBatchCommit(d time.Duration, numOps int, bytes int) {
	m.batchCommits++
	m.batchBytes += bytes
}

func newTestDB(t *testing.T) (*DB, *testMetrics) {
	t.Helper()
	dir := t.TempDir()
	metrics := &testMetrics{}
	db, err := Open(Options{
		DataDir:       dir,
		Fsync:         FsyncModeInterval,
		FsyncInterval: 2 * time.Millisecond,
		Metrics:       metrics,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func commit(t *testing.T, db *DB, fill func(b *pebble.Batch) error) {
	t.Helper()
	b := db.NewBatch()
	defer b.Close()
	if err := fill(b); err != nil {
		t.Fatalf("fill batch: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestGetAfterCommitAndDelete(t *testing.T) {
	db, metrics := newTestDB(t)

	key := []byte("k1")
	val := []byte("v1")
	commit(t, db, func(b *pebble.Batch) error { return b.Set(key, val, nil) })

	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(val) {
		t.Fatalf("got %q want %q", got, val)
	}
	if metrics.read != len(val) {
		t.Fatalf("read bytes = %d want %d", metrics.read, len(val))
	}

	commit(t, db, func(b *pebble.Batch) error { return b.Delete(key, nil) })
	if _, err := db.Get(key); !errors.Is(err, pebble.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestBatchCommitMetrics(t *testing.T) {
	db, metrics := newTestDB(t)

	b := db.NewBatch()
	if err := b.Set([]byte("a"), []byte("1"), nil); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	if err := b.Set([]byte("b"), []byte("2"), nil); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b.Close()

	if metrics.batchCommits != 1 {
		t.Fatalf("want 1 batch commit, got %d", metrics.batchCommits)
	}
	if metrics.batchBytes <= 0 {
		t.Fatalf("expected positive batch bytes")
	}
}

func TestCommitBatchHonorsContext(t *testing.T) {
	db, metrics := newTestDB(t)

	b := db.NewBatch()
	defer b.Close()
	_ = b.Set([]byte("a"), []byte("1"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := db.CommitBatch(ctx, b); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if metrics.batchCommits != 0 {
		t.Fatalf("cancelled commit must not be observed")
	}
	if _, err := db.Get([]byte("a")); err == nil {
		t.Fatalf("cancelled batch must not be visible")
	}
}

func TestOpenRequiresDataDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error without DataDir")
	}
}

func TestSyncInterval(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want time.Duration
	}{
		{"unspecified", Options{}, defaultSyncInterval},
		{"interval default", Options{Fsync: FsyncModeInterval}, defaultSyncInterval},
		{"interval set", Options{Fsync: FsyncModeInterval, FsyncInterval: time.Second}, time.Second},
		{"always", Options{Fsync: FsyncModeAlways, FsyncInterval: time.Second}, 0},
		{"never", Options{Fsync: FsyncModeNever}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := syncInterval(tc.opts); got != tc.want {
				t.Fatalf("syncInterval = %v want %v", got, tc.want)
			}
		})
	}
}
