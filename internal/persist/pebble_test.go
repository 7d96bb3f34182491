package persist

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	pebblestore "github.com/rzbill/floq/internal/storage/pebble"
)

func newPebbleStore(t *testing.T, opts Options) (*PebbleStore, *clockwork.FakeClock) {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	clock := clockwork.NewFakeClockAt(t0)
	opts.Clock = clock
	s, err := NewPebbleStore(db, opts)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestPebbleStoreAllReplaysInOrder(t *testing.T) {
	s, _ := newPebbleStore(t, Options{Mode: ModeAll})
	ctx := context.Background()
	for _, m := range []string{"A", "B\n"} {
		if err := s.Append(ctx, "weather", []byte(m)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = s.Append(ctx, "other", []byte("x"))

	var buf bytes.Buffer
	res, err := s.Replay(ctx, "weather", &buf)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if buf.String() != "A\nB\n" || res.Delivered != 2 {
		t.Fatalf("replayed %q (%d)", buf.String(), res.Delivered)
	}
	topics, err := s.Topics()
	if err != nil || len(topics) != 2 || topics[0] != "other" {
		t.Fatalf("topics = %v err=%v", topics, err)
	}
}

func TestPebbleStoreAllReplaysAcrossPages(t *testing.T) {
	s, _ := newPebbleStore(t, Options{Mode: ModeAll})
	ctx := context.Background()
	n := 2*replayPageSize + 5
	var want bytes.Buffer
	for i := 0; i < n; i++ {
		m := fmt.Sprintf("m%d\n", i)
		want.WriteString(m)
		if err := s.Append(ctx, "bulk", []byte(m)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	var buf bytes.Buffer
	res, err := s.Replay(ctx, "bulk", &buf)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.Delivered != n {
		t.Fatalf("delivered %d want %d", res.Delivered, n)
	}
	if buf.String() != want.String() {
		t.Fatalf("replay out of order or incomplete")
	}
}

func TestPebbleStoreAllReplayStopsOnCanceledContext(t *testing.T) {
	s, _ := newPebbleStore(t, Options{Mode: ModeAll})
	_ = s.Append(context.Background(), "t", []byte("a\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if _, err := s.Replay(ctx, "t", &buf); err != context.Canceled {
		t.Fatalf("err = %v want context.Canceled", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %q after cancel", buf.String())
	}
}

func TestPebbleStoreTimedDropsExpired(t *testing.T) {
	s, clock := newPebbleStore(t, Options{Mode: ModeTimed, Retention: 10 * time.Second})
	ctx := context.Background()
	var dropped int
	s.opts.OnExpire = func(topic string, n int) { dropped += n }

	_ = s.Append(ctx, "t", []byte("old\n"))
	clock.Advance(20 * time.Second)
	_ = s.Append(ctx, "t", []byte("new\n"))
	clock.Advance(5 * time.Second)

	var buf bytes.Buffer
	res, err := s.Replay(ctx, "t", &buf)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if buf.String() != "new\n" || res.Expired != 1 || dropped != 1 {
		t.Fatalf("replay = %q %+v dropped=%d", buf.String(), res, dropped)
	}

	// expired entries are gone for good
	buf.Reset()
	res, err = s.Replay(ctx, "t", &buf)
	if err != nil || buf.String() != "new\n" || res.Expired != 0 {
		t.Fatalf("second replay = %q %+v err=%v", buf.String(), res, err)
	}
}

func TestPebbleStoreWriteFailureStillCompacts(t *testing.T) {
	s, clock := newPebbleStore(t, Options{Mode: ModeTimed, Retention: 10 * time.Second})
	ctx := context.Background()
	_ = s.Append(ctx, "t", []byte("stale"))
	clock.Advance(time.Minute)
	_ = s.Append(ctx, "t", []byte("one"))
	_ = s.Append(ctx, "t", []byte("two"))

	res, err := s.Replay(ctx, "t", &failingWriter{})
	if err == nil || res.Delivered != 0 || res.Expired != 1 {
		t.Fatalf("result = %+v err=%v", res, err)
	}
	var buf bytes.Buffer
	if _, err := s.Replay(ctx, "t", &buf); err != nil || buf.String() != "one\ntwo\n" {
		t.Fatalf("after failed replay = %q err=%v", buf.String(), err)
	}
}

func TestPebbleStoreNoneNeedsNoDatabase(t *testing.T) {
	s, err := NewPebbleStore(nil, Options{Mode: ModeNone})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Append(context.Background(), "t", []byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := NewPebbleStore(nil, Options{Mode: ModeAll}); err == nil {
		t.Fatalf("expected error without a database")
	}
}
