package persist

import (
	"context"
	"errors"
	"io"
	"sort"

	"github.com/rzbill/floq/internal/eventlog"
	pebblestore "github.com/rzbill/floq/internal/storage/pebble"
)

// replayPageSize bounds how many entries an all-mode replay holds at once.
const replayPageSize = 256

// PebbleStore keeps topic history in per-topic eventlogs. Timed entries
// carry their append time in the record header.
type PebbleStore struct {
	db   *pebblestore.DB
	opts Options
	logs map[string]*eventlog.Log
}

// NewPebbleStore returns a Store over db. The caller keeps ownership of db.
func NewPebbleStore(db *pebblestore.DB, opts Options) (*PebbleStore, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if db == nil && opts.Mode != ModeNone {
		return nil, errors.New("persist: pebble store requires a database")
	}
	return &PebbleStore{db: db, opts: opts, logs: map[string]*eventlog.Log{}}, nil
}

func (s *PebbleStore) Mode() Mode { return s.opts.Mode }

func (s *PebbleStore) log(topic string) (*eventlog.Log, error) {
	if l, ok := s.logs[topic]; ok {
		return l, nil
	}
	l, err := eventlog.OpenLog(s.db, topic)
	if err != nil {
		return nil, err
	}
	l.SetTrimHook(expireHook(s.opts.OnExpire))
	s.logs[topic] = l
	return l, nil
}

func (s *PebbleStore) Append(ctx context.Context, topic string, message []byte) error {
	if s.opts.Mode == ModeNone {
		return nil
	}
	if err := checkTopic(topic); err != nil {
		return err
	}
	l, err := s.log(topic)
	if err != nil {
		return err
	}
	rec := eventlog.AppendRecord{Payload: FormatEntry(false, 0, message)}
	if s.opts.Mode == ModeTimed {
		rec.Header = eventlog.TimestampHeader(s.opts.Clock.Now().Unix())
	}
	_, err = l.Append(ctx, []eventlog.AppendRecord{rec})
	return err
}

func (s *PebbleStore) Replay(ctx context.Context, topic string, w io.Writer) (ReplayResult, error) {
	var res ReplayResult
	if s.opts.Mode == ModeNone {
		return res, nil
	}
	if err := checkTopic(topic); err != nil {
		return res, err
	}
	l, err := s.log(topic)
	if err != nil {
		return res, err
	}

	var deliverErr error
	deliver := func(payload []byte) {
		if deliverErr != nil {
			return
		}
		if _, err := w.Write(payload); err != nil {
			deliverErr = err
			return
		}
		res.Delivered++
	}

	if s.opts.Mode == ModeAll {
		var start eventlog.Token
		for {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			items, next, err := l.Read(eventlog.ReadOptions{Start: start, Limit: replayPageSize})
			if err != nil {
				return res, err
			}
			for _, it := range items {
				deliver(it.Payload)
			}
			if deliverErr != nil || next.IsZero() {
				return res, deliverErr
			}
			start = next
		}
	}

	now := s.opts.Clock.Now().Unix()
	retention := s.opts.retentionSeconds()
	dropped, err := l.DeleteWhere(ctx, func(it eventlog.Item) bool {
		ts, _ := eventlog.HeaderTimestamp(it.Header)
		if expired(now, ts, retention) {
			return true
		}
		deliver(it.Payload)
		return false
	})
	res.Expired = dropped
	if err != nil {
		return res, err
	}
	return res, deliverErr
}

func (s *PebbleStore) Topics() ([]string, error) {
	if s.opts.Mode == ModeNone {
		return nil, nil
	}
	topics, err := eventlog.Topics(s.db)
	if err != nil {
		return nil, err
	}
	sort.Strings(topics)
	return topics, nil
}

// Close releases cached logs. The database stays open.
func (s *PebbleStore) Close() error {
	s.logs = map[string]*eventlog.Log{}
	return nil
}

type expireHook func(topic string, n int)

func (h expireHook) EmitTrimRange(topic string, _, _ uint64, count int) { h(topic, count) }
