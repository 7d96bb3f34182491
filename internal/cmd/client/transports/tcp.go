package transports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/rzbill/floq/internal/protocol"
)

// Dialer opens a connection to the broker.
type Dialer func(ctx context.Context) (net.Conn, error)

// DialTCP returns a Dialer for addr with the given connect timeout.
func DialTCP(addr string, timeout time.Duration) Dialer {
	d := net.Dialer{Timeout: timeout}
	return func(ctx context.Context) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}
}

// TCPTransport implements Transport over the broker's line protocol.
type TCPTransport struct {
	dial Dialer
}

// NewTCPTransport constructs a TCPTransport using the provided dialer.
func NewTCPTransport(dial Dialer) *TCPTransport {
	return &TCPTransport{dial: dial}
}

func (t *TCPTransport) withConn(ctx context.Context, fn func(net.Conn) error) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	return fn(conn)
}

// Publish sends PUB and drains the connection until the broker closes it.
func (t *TCPTransport) Publish(ctx context.Context, topic string, message []byte) error {
	return t.withConn(ctx, func(conn net.Conn) error {
		if _, err := conn.Write(protocol.FormatPublish(topic, message)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if _, err := io.Copy(io.Discard, conn); err != nil && !isClosed(err) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("await close: %w", err)
		}
		return nil
	})
}

// Subscribe sends SUB and copies the stream to w.
func (t *TCPTransport) Subscribe(ctx context.Context, topic string, w io.Writer) error {
	return t.withConn(ctx, func(conn net.Conn) error {
		if _, err := conn.Write(protocol.FormatSubscribe(topic)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		_, err := io.Copy(w, conn)
		if err == nil || ctx.Err() != nil || isClosed(err) {
			return nil
		}
		return fmt.Errorf("receive: %w", err)
	})
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET)
}
