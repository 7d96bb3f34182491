package grpcserver

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	logpkg "github.com/rzbill/floq/pkg/log"
)

// Probe reports whether the broker can serve. A nil error means SERVING.
type Probe func(ctx context.Context) error

// Watch evaluates probe every interval and publishes the result as the
// health status until ctx is done. The first evaluation happens at once.
func (s *Server) Watch(ctx context.Context, clock clockwork.Clock, interval time.Duration, probe Probe) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	var known, serving bool
	for {
		err := probe(ctx)
		if ctx.Err() != nil {
			return
		}
		if ok := err == nil; !known || ok != serving {
			if !ok {
				s.log.Warn("broker not serving", logpkg.Err(err))
			}
			s.SetServing(ok)
			known, serving = true, ok
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
