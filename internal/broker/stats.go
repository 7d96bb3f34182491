package broker

import (
	"context"

	logpkg "github.com/rzbill/floq/pkg/log"
)

// Stats is a point-in-time view of the registry and store.
type Stats struct {
	Connections int            `json:"connections"`
	Capacity    int            `json:"capacity"`
	Subscribers int            `json:"subscribers"`
	Topics      map[string]int `json:"topics"`
	Persistence string         `json:"persistence"`
	Persisted   []string       `json:"persisted,omitempty"`
}

// Stats asks the dispatch loop for a snapshot.
func (b *Broker) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case b.events <- event{kind: eventStats, reply: reply}:
	case <-b.done:
		return Stats{}, ErrClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-b.done:
		return Stats{}, ErrClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (b *Broker) stats() Stats {
	s := Stats{
		Connections: b.reg.Len(),
		Capacity:    b.reg.Capacity(),
		Subscribers: b.reg.Subscribers(),
		Topics:      b.reg.Topics(),
		Persistence: b.opts.Store.Mode().String(),
	}
	if topics, err := b.opts.Store.Topics(); err == nil {
		s.Persisted = topics
	} else {
		b.log.Warn("listing persisted topics failed", logpkg.Err(err))
	}
	return s
}
