package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzbill/floq/internal/broker"
	"github.com/rzbill/floq/internal/metrics"
	logpkg "github.com/rzbill/floq/pkg/log"
)

// Broker is the part of the broker the admin endpoints read.
type Broker interface {
	Running() bool
	Stats(ctx context.Context) (broker.Stats, error)
}

// HealthChecker reports whether the persistence backend is usable.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Server serves health, stats, and Prometheus metrics.
type Server struct {
	b      Broker
	health HealthChecker
	log    logpkg.Logger
	srv    *http.Server
}

// New builds the admin server. health and reg may be nil.
func New(b Broker, health HealthChecker, reg *prometheus.Registry, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	mux := http.NewServeMux()
	s := &Server{b: b, health: health, log: logger.With(logpkg.Component("admin"))}
	s.srv = &http.Server{
		Handler:           cors(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          logpkg.ToStdLogger(s.log, logpkg.WarnLevel),
	}
	mux.HandleFunc("GET /v1/healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	if reg != nil {
		mux.Handle("GET /metrics", metrics.Handler(reg))
	}
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("admin listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.b.Running() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving", "error": "broker not running"})
		return
	}
	if s.health != nil {
		if err := s.health.CheckHealth(r.Context()); err != nil {
			s.log.Warn("health check failed", logpkg.Err(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	st, err := s.b.Stats(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, broker.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}
