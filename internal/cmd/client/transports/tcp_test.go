package transports

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"
)

// serveOnce accepts one connection, records what it reads first, writes
// reply, and closes unless hold is set.
func serveOnce(t *testing.T, reply string, hold bool) (addr string, got <-chan string) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = lis.Close() })
	ch := make(chan string, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		n, _ := conn.Read(buf)
		ch <- string(buf[:n])
		_, _ = conn.Write([]byte(reply))
		if hold {
			_, _ = io.Copy(io.Discard, conn)
		}
	}()
	return lis.Addr().String(), ch
}

func TestPublishSendsCommand(t *testing.T) {
	addr, got := serveOnce(t, "", false)
	tr := NewTCPTransport(DialTCP(addr, time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Publish(ctx, "orders", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if s := <-got; s != "PUB orders\nhello" {
		t.Fatalf("server read %q", s)
	}
}

func TestSubscribeCopiesUntilClose(t *testing.T) {
	addr, got := serveOnce(t, "old\nMSG orders\nnew", false)
	tr := NewTCPTransport(DialTCP(addr, time.Second))
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Subscribe(ctx, "orders", &out); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if s := <-got; s != "SUB orders\n" {
		t.Fatalf("server read %q", s)
	}
	if out.String() != "old\nMSG orders\nnew" {
		t.Fatalf("output %q", out.String())
	}
}

func TestSubscribeStopsOnCancel(t *testing.T) {
	addr, _ := serveOnce(t, "", true)
	tr := NewTCPTransport(DialTCP(addr, time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Subscribe(ctx, "orders", io.Discard) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscribe did not return")
	}
}

func TestDialFailure(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()
	tr := NewTCPTransport(DialTCP(addr, time.Second))
	if err := tr.Publish(context.Background(), "t", []byte("m")); err == nil {
		t.Fatalf("expected connect error")
	}
}
