package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/floq/internal/storage/pebble"
)

// AppendRecord represents a single appendable message.
type AppendRecord struct {
	Header  []byte
	Payload []byte
}

// Log provides append-only operations for one topic.
type Log struct {
	db    *pebblestore.DB
	topic string

	mu      sync.Mutex
	lastSeq uint64
	hook    TrimHook
}

// OpenLog initializes a Log and loads the last sequence from metadata (if any).
func OpenLog(db *pebblestore.DB, topic string) (*Log, error) {
	l := &Log{db: db, topic: topic, hook: noopTrimHook{}}
	meta, err := db.Get(KeyLogMeta(topic))
	switch {
	case err == nil && len(meta) >= 8:
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebble.ErrNotFound):
		return nil, err
	}
	return l, nil
}

// SetTrimHook installs h to observe deletions. A nil h restores the no-op.
func (l *Log) SetTrimHook(h TrimHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == nil {
		h = noopTrimHook{}
	}
	l.hook = h
}

// Append appends the provided records as a single atomic batch. Returns assigned seq numbers.
func (l *Log) Append(ctx context.Context, recs []AppendRecord) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	next := l.lastSeq
	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		next++
		if err := b.Set(KeyLogEntry(l.topic, next), EncodeRecord(r.Header, r.Payload), nil); err != nil {
			return nil, err
		}
		seqs[i] = next
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], next)
	if err := b.Set(KeyLogMeta(l.topic), meta[:], nil); err != nil {
		return nil, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	l.lastSeq = next
	return seqs, nil
}

// Topics lists every topic that has a log in db.
func Topics(db *pebblestore.DB) ([]string, error) {
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: logPrefix, UpperBound: []byte("log0")})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for ok := iter.First(); ok; ok = iter.Next() {
		if t, isMeta := topicFromMetaKey(iter.Key()); isMeta {
			out = append(out, t)
		}
	}
	return out, iter.Error()
}
