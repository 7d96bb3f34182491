package eventlog

import (
	"context"

	"github.com/cockroachdb/pebble"
)

// DeleteWhere removes every entry for which drop returns true. All deletes
// are committed in a single batch, so a crash leaves either the old or the
// new set of entries. Corrupt records are always dropped.
// Returns the number of deleted entries.
func (l *Log) DeleteWhere(ctx context.Context, drop func(Item) bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	low, high := entryBounds(l.topic)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: high})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	b := l.db.NewBatch()
	defer b.Close()

	deleted := 0
	var minSeq, maxSeq uint64
	for ok := iter.First(); ok; ok = iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		seq := seqFromKey(iter.Key())
		dec, good := DecodeRecord(iter.Value())
		if good && !drop(Item{Seq: seq, Header: dec.Header, Payload: dec.Payload}) {
			continue
		}
		if err := b.Delete(iter.Key(), nil); err != nil {
			return 0, err
		}
		if deleted == 0 {
			minSeq = seq
		}
		maxSeq = seq
		deleted++
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, nil
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	l.hook.EmitTrimRange(l.topic, minSeq, maxSeq, deleted)
	return deleted, nil
}
