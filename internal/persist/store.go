package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Mode selects what is persisted. It is fixed for the life of a Store.
type Mode int

const (
	ModeNone Mode = iota
	ModeAll
	ModeTimed
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeAll:
		return "all"
	case ModeTimed:
		return "timed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses none|all|timed. The empty string is none.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "all":
		return ModeAll, nil
	case "timed":
		return ModeTimed, nil
	default:
		return ModeNone, fmt.Errorf("persist: unknown mode %q", s)
	}
}

var (
	ErrInvalidTopic     = errors.New("persist: invalid topic")
	ErrInvalidRetention = errors.New("persist: timed mode requires a positive retention")
)

// Options configures either backend.
type Options struct {
	Mode Mode
	// Retention is the maximum age of a replayed entry in timed mode. It is
	// applied at one second granularity.
	Retention time.Duration
	// Fsync syncs every append to stable storage before returning.
	Fsync bool
	// Clock defaults to the wall clock.
	Clock clockwork.Clock
	// OnExpire is told how many entries a timed replay dropped. Optional.
	OnExpire func(topic string, n int)
}

func (o *Options) validate() error {
	switch o.Mode {
	case ModeNone, ModeAll:
	case ModeTimed:
		if o.Retention < time.Second {
			return ErrInvalidRetention
		}
	default:
		return fmt.Errorf("persist: unknown mode %d", int(o.Mode))
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.OnExpire == nil {
		o.OnExpire = func(string, int) {}
	}
	return nil
}

func (o *Options) retentionSeconds() int64 { return int64(o.Retention / time.Second) }

// ReplayResult summarizes one Replay call.
type ReplayResult struct {
	// Delivered counts entries written to the subscriber.
	Delivered int
	// Expired counts entries dropped by timed retention.
	Expired int
}

// Store persists messages and replays them. Implementations are not safe for
// concurrent use; the broker calls them from its dispatch goroutine only.
type Store interface {
	Mode() Mode
	// Append records message under topic. In ModeNone it does nothing.
	Append(ctx context.Context, topic string, message []byte) error
	// Replay writes the retained history of topic to w, oldest first. A
	// missing history is not an error. A write error on w stops delivery
	// but not compaction, and is returned once the scan completes.
	Replay(ctx context.Context, topic string, w io.Writer) (ReplayResult, error)
	// Topics lists topics with stored history.
	Topics() ([]string, error)
	Close() error
}

func checkTopic(topic string) error {
	if topic == "" || strings.ContainsRune(topic, '\n') {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return nil
}

// Nop returns a Store that persists nothing.
func Nop() Store { return nopStore{} }

type nopStore struct{}

func (nopStore) Mode() Mode                                   { return ModeNone }
func (nopStore) Append(context.Context, string, []byte) error { return nil }
func (nopStore) Topics() ([]string, error)                    { return nil, nil }
func (nopStore) Close() error                                 { return nil }

func (nopStore) Replay(context.Context, string, io.Writer) (ReplayResult, error) {
	return ReplayResult{}, nil
}
