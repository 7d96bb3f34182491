// Package eventlog implements the append-only per-topic log used by the
// pebble persistence backend.
//
// # Overview
//
// Each topic has its own log persisted in Pebble. Keys are lexicographically
// ordered for efficient range scans:
//   - log/{escaped topic}/m           (metadata: lastSeq)
//   - log/{escaped topic}/e/{seq_be8} (entries)
//
// Records are stored as: uvarint headerLen | header | payload | crc32c(header|payload).
// Timed retention stores the append time in the header (TimestampHeader).
//
// API surface (internal)
//
//	l, _ := OpenLog(db, "weather")
//	seqs, _ := l.Append(ctx, []AppendRecord{{Header: TimestampHeader(now), Payload: msg}})
//
//	// Page forward; next is zero once the log is exhausted
//	items, next, _ := l.Read(ReadOptions{Limit: 100})
//	items, next, _ = l.Read(ReadOptions{Start: next, Limit: 100})
//
//	// Atomically delete expired entries; the TrimHook sees the range
//	n, _ := l.DeleteWhere(ctx, func(it Item) bool { return expired(it) })
package eventlog
