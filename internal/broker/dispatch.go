package broker

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/rzbill/floq/internal/protocol"
	"github.com/rzbill/floq/internal/registry"
	"github.com/rzbill/floq/pkg/id"
	logpkg "github.com/rzbill/floq/pkg/log"
)

type eventKind int

const (
	eventAccept eventKind = iota
	eventData
	eventClosed
	eventStats
)

type event struct {
	kind  eventKind
	conn  net.Conn
	slot  int
	cid   id.ID
	data  []byte
	err   error
	reply chan<- Stats
}

func (b *Broker) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventAccept:
		b.accept(ev.conn)
	case eventData:
		b.data(ctx, ev.slot, ev.cid, ev.data)
	case eventClosed:
		b.closed(ev.slot, ev.cid, ev.err)
	case eventStats:
		ev.reply <- b.stats()
	}
}

func (b *Broker) accept(conn net.Conn) {
	cid := b.opts.IDs.Next()
	slot, err := b.reg.Accept(cid, conn)
	if err != nil {
		b.metrics.RejectedConnections.Inc()
		_ = conn.Close()
		b.log.Warn("connection rejected",
			logpkg.Str("remote", conn.RemoteAddr().String()),
			logpkg.Err(err),
		)
		return
	}
	b.updateGauges()
	b.log.Debug("connection accepted",
		logpkg.Str("remote", conn.RemoteAddr().String()),
		logpkg.Str(logpkg.ConnKey, cid.Short()),
		logpkg.Int("slot", slot),
	)
	b.wg.Add(1)
	go b.readLoop(slot, cid, conn)
}

// readLoop forwards each read to the dispatch loop as its own event.
func (b *Broker) readLoop(slot int, cid id.ID, conn net.Conn) {
	defer b.wg.Done()
	buf := make([]byte, b.opts.BufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !b.post(event{kind: eventData, slot: slot, cid: cid, data: data}) {
				return
			}
		}
		if err != nil {
			b.post(event{kind: eventClosed, slot: slot, cid: cid, err: err})
			return
		}
	}
}

func (b *Broker) data(ctx context.Context, slot int, cid id.ID, data []byte) {
	c, ok := b.reg.Lookup(slot, cid)
	if !ok {
		return
	}
	l := b.connLogger(c, slot)
	cmd, err := protocol.Parse(c.State, data, b.opts.MaxTopicLen)
	if err != nil {
		reason := protocol.Reason(err)
		b.metrics.ProtocolErrors.WithLabelValues(reason).Inc()
		l.Warn("closing connection", logpkg.Str("reason", reason), logpkg.Int("bytes", len(data)))
		b.release(slot)
		return
	}
	switch cmd.Kind {
	case protocol.KindSubscribe:
		b.subscribe(ctx, l, c, slot, cmd.Topic)
	case protocol.KindPublish:
		b.publish(ctx, l, slot, cmd.Topic, cmd.Message)
	}
}

func (b *Broker) subscribe(ctx context.Context, l logpkg.Logger, c *registry.Connection, slot int, topic string) {
	if err := b.reg.Subscribe(slot, topic); err != nil {
		l.Error("subscribe failed", logpkg.Err(err))
		b.release(slot)
		return
	}
	b.updateGauges()
	l.Info("subscribed", logpkg.Topic(topic))

	res, err := b.opts.Store.Replay(ctx, topic, connWriter{b: b, conn: c.Conn})
	b.metrics.Replayed.Add(float64(res.Delivered))
	if err != nil {
		b.metrics.PersistErrors.WithLabelValues("replay").Inc()
		l.Warn("replay incomplete", logpkg.Topic(topic), logpkg.Int("delivered", res.Delivered), logpkg.Err(err))
		return
	}
	if res.Delivered > 0 || res.Expired > 0 {
		l.Debug("replayed history", logpkg.Topic(topic), logpkg.Int("delivered", res.Delivered), logpkg.Int("expired", res.Expired))
	}
}

// publish persists first, fans out to every subscriber of topic in slot
// order, then closes the publisher.
func (b *Broker) publish(ctx context.Context, l logpkg.Logger, slot int, topic string, message []byte) {
	b.metrics.MessagesPublished.Inc()
	if err := b.opts.Store.Append(ctx, topic, message); err != nil {
		b.metrics.PersistErrors.WithLabelValues("append").Inc()
		l.Error("persist failed", logpkg.Topic(topic), logpkg.Err(err))
	}

	frame := protocol.FormatDelivery(topic, message)
	delivered := 0
	for _, s := range b.reg.FindSubscribers(topic) {
		sub, _ := b.reg.Get(s)
		if err := b.write(sub.Conn, frame); err != nil {
			b.metrics.DeliveryFailures.Inc()
			b.connLogger(sub, s).Warn("delivery failed", logpkg.Topic(topic), logpkg.Err(err))
			continue
		}
		b.metrics.Deliveries.Inc()
		delivered++
	}
	l.Debug("published", logpkg.Topic(topic), logpkg.Int("bytes", len(message)), logpkg.Int("subscribers", delivered))
	b.release(slot)
}

func (b *Broker) closed(slot int, cid id.ID, err error) {
	c, ok := b.reg.Lookup(slot, cid)
	if !ok {
		return
	}
	l := b.connLogger(c, slot)
	if isExpectedCloseError(err) {
		l.Debug("connection closed by peer")
	} else {
		l.Warn("connection read failed", logpkg.Err(err))
	}
	b.release(slot)
}

func (b *Broker) release(slot int) {
	if b.reg.Release(slot) {
		b.updateGauges()
	}
}

func (b *Broker) connLogger(c *registry.Connection, slot int) logpkg.Logger {
	fields := []logpkg.Field{logpkg.Str(logpkg.ConnKey, c.ID.Short()), logpkg.Int("slot", slot)}
	if c.Topic != "" {
		fields = append(fields, logpkg.Topic(c.Topic))
	}
	return b.log.With(fields...)
}

// write sends p within the write timeout.
func (b *Broker) write(conn net.Conn, p []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
	defer conn.SetWriteDeadline(time.Time{})
	_, err := conn.Write(p)
	return err
}

type connWriter struct {
	b    *Broker
	conn net.Conn
}

func (w connWriter) Write(p []byte) (int, error) {
	if err := w.b.write(w.conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// isExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe, or connection reset.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
