// Package client provides the `floq pub` and `floq sub` commands.
//
// Both commands speak the broker's line protocol over TCP. The address
// comes from --addr, then FLOQ_ADDR, then 127.0.0.1:8080.
//
// Usage
//
//	floq sub weather
//	floq pub weather "sunny, 21C"
//	echo "from stdin" | floq pub weather -
//
// Notes
//
//   - pub waits for the broker to close the connection, which happens once
//     the message has been persisted and fanned out.
//   - sub prints retained history as bare messages and live deliveries as
//     "MSG <topic>\n<message>" frames, exactly as received.
package client
