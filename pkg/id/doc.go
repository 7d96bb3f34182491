// Package id provides a 128-bit, lexicographically sortable identifier.
//
// The broker stamps every accepted connection with one so events queued for
// a registry slot can be matched against the connection currently holding
// it: a slot freed and reused between an event being queued and handled
// carries a different ID.
//
// # Format
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison preserves chronological order, and IDs generated
// within the same millisecond remain strictly increasing by sequence.
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity:
//   - If the clock regresses, it pins to the last seen millisecond and
//     increments the sequence to avoid going backwards.
//   - If the sequence would overflow within a millisecond, it waits for the
//     next millisecond before emitting the next ID.
//
// Usage
//
//	g := id.NewGenerator()
//	connID := g.Next()
//	s := connID.String()  // hex string
package id
