package eventlog

import (
	"context"
	"testing"
)

func seedLog(t *testing.T, n int) (*Log, []uint64) {
	t.Helper()
	l := newTestLog(t, "t")
	recs := make([]AppendRecord, n)
	for i := 0; i < n; i++ {
		recs[i] = AppendRecord{Payload: []byte{byte(i)}}
	}
	seqs, err := l.Append(context.Background(), recs)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return l, seqs
}

func TestReadForward(t *testing.T) {
	l, seqs := seedLog(t, 5)
	items, next, err := l.Read(ReadOptions{Limit: 3})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %d", len(items))
	}
	if items[0].Seq != seqs[0] || items[2].Seq != seqs[2] {
		t.Fatalf("unexpected seqs")
	}
	if next.Seq() != seqs[3] {
		t.Fatalf("next token = %d want %d", next.Seq(), seqs[3])
	}
}

func TestSeekByToken(t *testing.T) {
	l, seqs := seedLog(t, 4)
	items, next, err := l.Read(ReadOptions{Start: tokenFromSeq(seqs[2]), Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 || items[0].Seq != seqs[2] {
		t.Fatalf("seek failed")
	}
	if next.Seq() != 0 {
		t.Fatalf("expected zero token at end, got %d", next.Seq())
	}
}

func TestReadPagesToEnd(t *testing.T) {
	l, seqs := seedLog(t, 7)
	var got []uint64
	var start Token
	pages := 0
	for {
		items, next, err := l.Read(ReadOptions{Start: start, Limit: 3})
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		pages++
		for _, it := range items {
			got = append(got, it.Seq)
		}
		if next.IsZero() {
			break
		}
		start = next
	}
	if pages != 3 {
		t.Fatalf("pages = %d want 3", pages)
	}
	if len(got) != len(seqs) {
		t.Fatalf("read %d items want %d", len(got), len(seqs))
	}
	for i := range seqs {
		if got[i] != seqs[i] {
			t.Fatalf("item %d seq = %d want %d", i, got[i], seqs[i])
		}
	}
}
