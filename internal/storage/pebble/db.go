package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// defaultSyncInterval is the WAL sync window used when no fsync mode is set.
const defaultSyncInterval = 5 * time.Millisecond

// FsyncMode selects when committed batches reach disk.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways syncs the WAL before CommitBatch returns.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble group WAL syncs inside FsyncInterval.
	FsyncModeInterval
	// FsyncModeNever leaves syncing to Pebble. A crash can lose recent
	// history; tests use it.
	FsyncModeNever
)

type Options struct {
	DataDir string
	Fsync   FsyncMode
	// FsyncInterval applies to FsyncModeInterval. Zero means 5ms.
	FsyncInterval time.Duration
	// PebbleOptions is passed to pebble.Open after the fsync settings are
	// applied. Nil uses Pebble's defaults.
	PebbleOptions *pebble.Options
	Metrics       MetricsHook
	// Logger receives Pebble's event log. Nil keeps Pebble's default.
	Logger pebble.Logger
}

// MetricsHook observes reads and batch commits.
type MetricsHook interface {
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int)
}

type NoopMetrics struct{}

func (NoopMetrics) ObserveRead(time.Duration, int)             {}
func (NoopMetrics) ObserveBatchCommit(time.Duration, int, int) {}

// DB is the Pebble handle shared by every topic log.
type DB struct {
	inner     *pebble.DB
	writeSync bool
	metrics   MetricsHook
}

func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}
	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	if d := syncInterval(opts); d > 0 {
		po.WALMinSyncInterval = func() time.Duration { return d }
	}
	if opts.Logger != nil {
		po.Logger = opts.Logger
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", opts.DataDir, err)
	}
	m := opts.Metrics
	if m == nil {
		m = NoopMetrics{}
	}
	return &DB{inner: inner, writeSync: opts.Fsync == FsyncModeAlways, metrics: m}, nil
}

// syncInterval is the WAL group-sync window for opts, or zero when commits
// either sync themselves or never force a sync.
func syncInterval(opts Options) time.Duration {
	switch opts.Fsync {
	case FsyncModeAlways, FsyncModeNever:
		return 0
	case FsyncModeInterval:
		if opts.FsyncInterval > 0 {
			return opts.FsyncInterval
		}
	}
	return defaultSyncInterval
}

func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

func (db *DB) NewBatch() *pebble.Batch {
	return db.inner.NewBatch()
}

// CommitBatch applies b. A cancelled ctx leaves b uncommitted.
func (db *DB) CommitBatch(ctx context.Context, b *pebble.Batch) error {
	if b == nil {
		return errors.New("pebble: nil batch")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	size, ops := b.Len(), int(b.Count())
	wo := pebble.NoSync
	if db.writeSync {
		wo = pebble.Sync
	}
	err := b.Commit(wo)
	db.metrics.ObserveBatchCommit(time.Since(start), ops, size)
	return err
}

// Get returns a copy of the value stored at key, or pebble.ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	start := time.Now()
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	buf := append([]byte(nil), val...)
	db.metrics.ObserveRead(time.Since(start), len(buf))
	return buf, nil
}

func (db *DB) NewIter(opts *pebble.IterOptions) (*pebble.Iterator, error) {
	return db.inner.NewIter(opts)
}
