// Package registry is the broker's fixed-capacity connection table.
//
// Slot 0 is reserved for the listening socket; client connections occupy
// slots 1..Capacity and keep their slot for their whole lifetime. Each
// connection carries an id.ID so a caller holding a slot number can tell
// whether the slot still belongs to the connection it expects.
//
// A Registry is not safe for concurrent use. The broker's dispatch
// goroutine is its only caller.
package registry
