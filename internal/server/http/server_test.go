package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzbill/floq/internal/broker"
	"github.com/rzbill/floq/internal/metrics"
)

type fakeBroker struct {
	running bool
	stats   broker.Stats
	err     error
}

func (f fakeBroker) Running() bool { return f.running }
func (f fakeBroker) Stats(context.Context) (broker.Stats, error) {
	return f.stats, f.err
}

type healthFunc func(context.Context) error

func (h healthFunc) CheckHealth(ctx context.Context) error { return h(ctx) }

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	ok := healthFunc(func(context.Context) error { return nil })
	broken := healthFunc(func(context.Context) error { return errors.New("disk gone") })
	tests := []struct {
		name   string
		b      fakeBroker
		health HealthChecker
		code   int
		status string
	}{
		{"serving", fakeBroker{running: true}, ok, http.StatusOK, "ok"},
		{"no checker", fakeBroker{running: true}, nil, http.StatusOK, "ok"},
		{"stopped", fakeBroker{}, ok, http.StatusServiceUnavailable, "not_serving"},
		{"store broken", fakeBroker{running: true}, broken, http.StatusServiceUnavailable, "not_serving"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.b, tt.health, nil, nil)
			w := serve(s, http.MethodGet, "/v1/healthz")
			if w.Code != tt.code {
				t.Fatalf("status: %d", w.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.status {
				t.Fatalf("body: %v", body)
			}
		})
	}
}

func TestStatsHandler(t *testing.T) {
	b := fakeBroker{running: true, stats: broker.Stats{
		Connections: 3,
		Capacity:    32,
		Subscribers: 2,
		Topics:      map[string]int{"weather": 2},
		Persistence: "all",
	}}
	s := New(b, nil, nil, nil)
	w := serve(s, http.MethodGet, "/v1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var got broker.Stats
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Connections != 3 || got.Topics["weather"] != 2 || got.Persistence != "all" {
		t.Fatalf("stats: %+v", got)
	}
}

func TestStatsHandlerClosedBroker(t *testing.T) {
	s := New(fakeBroker{err: broker.ErrClosed}, nil, nil, nil)
	if w := serve(s, http.MethodGet, "/v1/stats"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBrokerMetrics(reg)
	m.MessagesPublished.Add(4)
	s := New(fakeBroker{running: true}, nil, reg, nil)
	w := serve(s, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "floq_broker_messages_published_total 4") {
		t.Fatalf("metrics body missing counter:\n%s", w.Body.String())
	}
}

func TestMetricsAbsentWithoutRegistry(t *testing.T) {
	s := New(fakeBroker{running: true}, nil, nil, nil)
	if w := serve(s, http.MethodGet, "/metrics"); w.Code != http.StatusNotFound {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(fakeBroker{running: true}, nil, nil, nil)
	if w := serve(s, http.MethodPost, "/v1/stats"); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status: %d", w.Code)
	}
	if w := serve(s, http.MethodOptions, "/v1/stats"); w.Code != http.StatusNoContent {
		t.Fatalf("preflight status: %d", w.Code)
	}
}
