package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rzbill/floq/internal/metrics"
	"github.com/rzbill/floq/internal/persist"
	"github.com/rzbill/floq/internal/protocol"
	"github.com/rzbill/floq/internal/registry"
	"github.com/rzbill/floq/pkg/id"
	logpkg "github.com/rzbill/floq/pkg/log"
)

const (
	DefaultMaxClients   = 32
	DefaultWriteTimeout = 5 * time.Second
	acceptRetryDelay    = 50 * time.Millisecond
	eventQueueSize      = 64
)

var ErrClosed = errors.New("broker: closed")

// Options configures a Broker. Zero values take the defaults.
type Options struct {
	MaxClients   int
	BufferSize   int
	MaxTopicLen  int
	WriteTimeout time.Duration
	Store        persist.Store
	Logger       logpkg.Logger
	Metrics      *metrics.BrokerMetrics
	IDs          *id.Generator
}

func (o *Options) setDefaults() {
	if o.MaxClients <= 0 {
		o.MaxClients = DefaultMaxClients
	}
	if o.BufferSize <= 0 {
		o.BufferSize = protocol.DefaultBufferSize
	}
	if o.MaxTopicLen <= 0 {
		o.MaxTopicLen = protocol.DefaultMaxTopicLen
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.Store == nil {
		o.Store = persist.Nop()
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewBrokerMetrics(prometheus.NewRegistry())
	}
	if o.IDs == nil {
		o.IDs = id.NewGenerator()
	}
}

// Broker accepts connections and routes published messages to subscribers.
// A Broker serves once.
type Broker struct {
	opts    Options
	log     logpkg.Logger
	metrics *metrics.BrokerMetrics
	reg     *registry.Registry

	events  chan event
	done    chan struct{}
	ready   chan struct{}
	started atomic.Bool
	running atomic.Bool
	addr    atomic.Value // net.Addr
	wg      sync.WaitGroup
}

// New builds a Broker. Call Serve or ListenAndServe to run it.
func New(opts Options) *Broker {
	opts.setDefaults()
	return &Broker{
		opts:    opts,
		log:     opts.Logger.With(logpkg.Component("broker")),
		metrics: opts.Metrics,
		reg:     registry.New(opts.MaxClients),
		events:  make(chan event, eventQueueSize),
		done:    make(chan struct{}),
		ready:   make(chan struct{}),
	}
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (b *Broker) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("broker: listen %s: %w", addr, err)
	}
	return b.Serve(ctx, lis)
}

// Serve runs the dispatch loop on lis until ctx is cancelled or lis fails.
// On return the listener and every client connection are closed. Serve
// returns nil after cancellation.
func (b *Broker) Serve(ctx context.Context, lis net.Listener) error {
	if !b.started.CompareAndSwap(false, true) {
		_ = lis.Close()
		return errors.New("broker: already served")
	}
	b.reg.SetListener(lis)
	b.addr.Store(lis.Addr())

	acceptErr := make(chan error, 1)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		acceptErr <- b.acceptLoop(lis)
	}()

	b.running.Store(true)
	close(b.ready)
	b.log.Info("broker listening",
		logpkg.Str("addr", lis.Addr().String()),
		logpkg.Int("max_clients", b.opts.MaxClients),
		logpkg.Str("persistence", b.opts.Store.Mode().String()),
	)

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case aerr := <-acceptErr:
			err = fmt.Errorf("broker: accept: %w", aerr)
			break loop
		case ev := <-b.events:
			b.handle(ctx, ev)
		}
	}
	b.shutdown()
	if err != nil {
		b.log.Error("broker stopped", logpkg.Err(err))
		return err
	}
	b.log.Info("broker stopped")
	return nil
}

// Ready is closed once Serve has bound its listener and started dispatching.
func (b *Broker) Ready() <-chan struct{} { return b.ready }

// Running reports whether the dispatch loop is active.
func (b *Broker) Running() bool { return b.running.Load() }

// Addr is the listener address, or nil before Serve.
func (b *Broker) Addr() net.Addr {
	a, _ := b.addr.Load().(net.Addr)
	return a
}

func (b *Broker) shutdown() {
	b.running.Store(false)
	close(b.done)
	b.reg.CloseAll()
	b.wg.Wait()
	b.drainEvents()
	b.metrics.ActiveConnections.Set(0)
	b.metrics.Subscribers.Set(0)
}

// drainEvents discards events still queued once the posting goroutines have
// exited. Accepted connections that never reached the registry are closed.
func (b *Broker) drainEvents() {
	for {
		select {
		case ev := <-b.events:
			if ev.kind == eventAccept && ev.conn != nil {
				_ = ev.conn.Close()
			}
		default:
			return
		}
	}
}

func (b *Broker) acceptLoop(lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-b.done:
				return nil
			default:
			}
			if !isTemporaryAcceptError(err) {
				return err
			}
			b.log.Warn("accept failed; retrying", logpkg.Err(err))
			select {
			case <-time.After(acceptRetryDelay):
				continue
			case <-b.done:
				return nil
			}
		}
		select {
		case b.events <- event{kind: eventAccept, conn: conn}:
		case <-b.done:
			_ = conn.Close()
			return nil
		}
	}
}

// isTemporaryAcceptError reports whether Accept may succeed if retried, such
// as when the process is out of file descriptors.
func isTemporaryAcceptError(err error) bool {
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// post hands ev to the dispatch loop unless the broker is shutting down.
func (b *Broker) post(ev event) bool {
	select {
	case b.events <- ev:
		return true
	case <-b.done:
		return false
	}
}

func (b *Broker) updateGauges() {
	b.metrics.ActiveConnections.Set(float64(b.reg.Len()))
	b.metrics.Subscribers.Set(float64(b.reg.Subscribers()))
}
