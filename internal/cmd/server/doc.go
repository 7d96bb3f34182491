// Package serverrun is the entrypoint behind `floq server start`. It opens
// the configured store, runs the broker, and optionally serves the admin
// HTTP endpoints and gRPC health, shutting everything down together.
//
// Example:
//
//	cfg := config.Default()
//	cfg.Persistence.Mode = "all"
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{DataDir: "./data", Config: cfg})
package serverrun
