// Package protocol implements the broker's line protocol.
//
// A connection starts in StateUnknown. Its first read decides its role:
//
//	SUB <topic>[\n]            subscribe; the connection becomes a subscriber
//	PUB <topic>\n<message>     publish once; the connection is then closed
//
// Deliveries to subscribers are framed as "MSG <topic>\n<message>". Replayed
// history is written as the bare persisted message.
//
// Commands are parsed from a single read; nothing is reassembled across
// reads. A topic is 1 to maxTopicLen-1 bytes and never contains '\n'.
package protocol
