// Package transports provides the connections the CLI uses to reach a broker.
package transports

import (
	"context"
	"io"
)

// Transport abstracts how the CLI talks to a broker.
type Transport interface {
	// Publish sends one message and waits for the broker to close the
	// connection.
	Publish(ctx context.Context, topic string, message []byte) error
	// Subscribe copies everything the broker sends for topic to w until the
	// broker disconnects or ctx is done.
	Subscribe(ctx context.Context, topic string, w io.Writer) error
}
