// Package grpcserver exposes the standard gRPC health service for the
// broker. The service name floq.Broker is SERVING while the dispatch loop
// runs and its store is healthy.
//
// Example:
//
//	s := grpcserver.New(logger)
//	go s.Watch(ctx, nil, 5*time.Second, func(ctx context.Context) error {
//	    if !b.Running() {
//	        return broker.ErrClosed
//	    }
//	    return rt.CheckHealth(ctx)
//	})
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
