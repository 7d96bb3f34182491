package client

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/floq/internal/cmd/client/transports"
	"github.com/rzbill/floq/internal/protocol"
)

// DefaultAddr is used when neither --addr nor FLOQ_ADDR is set.
const DefaultAddr = "127.0.0.1:8080"

// AddrFunc provides the broker address when --addr is not given.
type AddrFunc func() string

// AddrFromEnv returns FLOQ_ADDR or DefaultAddr.
func AddrFromEnv() string {
	if addr := os.Getenv("FLOQ_ADDR"); addr != "" {
		return addr
	}
	return DefaultAddr
}

var newTransport = func(addr string, timeout time.Duration) transports.Transport {
	return transports.NewTCPTransport(transports.DialTCP(addr, timeout))
}

func addConnFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "Broker address (default $FLOQ_ADDR or "+DefaultAddr+")")
	cmd.Flags().Duration("dial-timeout", 5*time.Second, "Connect timeout")
}

func transportFor(cmd *cobra.Command, addr AddrFunc) transports.Transport {
	a, _ := cmd.Flags().GetString("addr")
	if a == "" {
		if addr == nil {
			addr = AddrFromEnv
		}
		a = addr()
	}
	timeout, _ := cmd.Flags().GetDuration("dial-timeout")
	return newTransport(a, timeout)
}

// checkTopic applies the broker's topic rules locally so a bad topic fails
// before a connection is made.
func checkTopic(topic string) error {
	if strings.ContainsAny(topic, "\n\x00") {
		return fmt.Errorf("topic %q must not contain newlines or NUL bytes", topic)
	}
	if !protocol.ValidTopic(topic, protocol.DefaultMaxTopicLen) {
		return fmt.Errorf("topic must be 1-%d bytes, got %d", protocol.DefaultMaxTopicLen-1, len(topic))
	}
	return nil
}

// readMessage returns arg, or stdin when arg is "-".
func readMessage(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return b, nil
}
