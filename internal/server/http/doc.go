// Package httpserver serves the broker's admin endpoints: /v1/healthz,
// /v1/stats, and /metrics.
//
// Example:
//
//	reg := metrics.NewRegistry()
//	s := httpserver.New(b, rt, reg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, "127.0.0.1:9090")
package httpserver
