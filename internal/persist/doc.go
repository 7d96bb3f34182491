// Package persist stores published messages per topic and replays them to
// new subscribers.
//
// Three modes are supported:
//   - none: nothing is stored and replay delivers nothing.
//   - all: every message is kept forever and replayed verbatim.
//   - timed: each entry records its append time; replay delivers entries no
//     older than the retention and atomically drops the rest.
//
// Two backends implement Store. FileStore keeps one text file per topic,
// <dir>/<escaped topic>.log, one entry per line:
//
//	all:   <message>
//	timed: <unix-seconds> <message>
//
// PebbleStore keeps the same entries in an eventlog per topic.
package persist
