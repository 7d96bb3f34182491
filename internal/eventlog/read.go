package eventlog

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// Token encodes the starting position as seq (8 bytes big-endian).
type Token [8]byte

func tokenFromSeq(seq uint64) Token { var t Token; binary.BigEndian.PutUint64(t[:], seq); return t }
func (t Token) Seq() uint64         { return binary.BigEndian.Uint64(t[:]) }

// IsZero reports whether t is the end-of-log token.
func (t Token) IsZero() bool { return t == Token{} }

type ReadOptions struct {
	Start Token // if zero, begin from the first entry
	Limit int   // 0 reads to the end
}

type Item struct {
	Seq     uint64
	Header  []byte
	Payload []byte
}

// Read returns up to Limit items in sequence order starting at Start
// (inclusive). Corrupt records are skipped. The returned Token is the
// position of the next unread item, zero at the end.
func (l *Log) Read(opts ReadOptions) ([]Item, Token, error) {
	startSeq := opts.Start.Seq()
	startKey := KeyLogEntry(l.topic, startSeq)
	low, high := entryBounds(l.topic)

	items := make([]Item, 0, max(1, opts.Limit))
	var next Token
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: high})
	if err != nil {
		return items, next, err
	}
	defer iter.Close()

	ok := iter.First()
	if startSeq != 0 {
		ok = iter.SeekGE(startKey)
	}
	for ; ok && (opts.Limit == 0 || len(items) < opts.Limit); ok = iter.Next() {
		if dec, good := DecodeRecord(iter.Value()); good {
			items = append(items, Item{Seq: seqFromKey(iter.Key()), Header: dec.Header, Payload: dec.Payload})
		}
	}
	if ok {
		next = tokenFromSeq(seqFromKey(iter.Key()))
	}
	return items, next, iter.Error()
}

