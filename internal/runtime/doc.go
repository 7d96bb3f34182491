// Package runtime opens the persistence backend a broker runs against.
// The file backend keeps one log per topic under <data-dir>/logs; the
// pebble backend keeps a database under <data-dir>/store.
//
// Example:
//
//	cfg := config.Default()
//	cfg.Persistence.Mode = "all"
//	rt, err := runtime.Open(runtime.Options{DataDir: "./data", Config: cfg})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//	b := broker.New(broker.Options{Store: rt.Store()})
package runtime
