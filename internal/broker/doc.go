// Package broker runs the publish/subscribe dispatch loop.
//
// One goroutine accepts connections and one reader goroutine per connection
// turns socket reads into events. A single dispatch goroutine consumes those
// events in arrival order and is the only code that touches the registry
// and the persistence store, so every command is handled to completion
// before the next one starts.
//
// Each event names a registry slot and the id of the connection that
// produced it. Events whose connection no longer holds the slot are dropped.
//
//	b := broker.New(broker.Options{Store: store, Logger: logger})
//	err := b.ListenAndServe(ctx, ":8080")
package broker
