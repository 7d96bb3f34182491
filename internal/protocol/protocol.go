package protocol

import (
	"bytes"
	"errors"
)

const (
	// DefaultMaxTopicLen bounds topics to DefaultMaxTopicLen-1 bytes.
	DefaultMaxTopicLen = 50
	// DefaultBufferSize is the largest single read the broker parses.
	DefaultBufferSize = 1024
)

var (
	subPrefix = []byte("SUB ")
	pubPrefix = []byte("PUB ")
	msgPrefix = []byte("MSG ")
)

// State is the per-connection protocol state.
type State int

const (
	StateUnknown State = iota
	StateSubscriber
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateSubscriber:
		return "subscriber"
	default:
		return "invalid"
	}
}

// Kind identifies a parsed command.
type Kind int

const (
	KindSubscribe Kind = iota + 1
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindSubscribe:
		return "SUB"
	case KindPublish:
		return "PUB"
	default:
		return "?"
	}
}

// Command is a validated request. Message is set only for KindPublish and
// aliases the parsed buffer.
type Command struct {
	Kind    Kind
	Topic   string
	Message []byte
}

var (
	ErrMalformedSubscribe = errors.New("protocol: malformed SUB command")
	ErrMalformedPublish   = errors.New("protocol: malformed PUB command")
	ErrUnknownCommand     = errors.New("protocol: unknown command")
	ErrUnexpectedData     = errors.New("protocol: unexpected data from subscriber")
)

// Parse interprets one read from a connection in state. Every error means the
// connection must be closed.
//
// PUB is accepted in any state. SUB is accepted only before the connection
// has subscribed; afterwards anything but PUB is ErrUnexpectedData.
func Parse(state State, buf []byte, maxTopicLen int) (Command, error) {
	if bytes.HasPrefix(buf, pubPrefix) {
		return parsePublish(buf, maxTopicLen)
	}
	if state == StateSubscriber {
		return Command{}, ErrUnexpectedData
	}
	if bytes.HasPrefix(buf, subPrefix) {
		return parseSubscribe(buf, maxTopicLen)
	}
	return Command{}, ErrUnknownCommand
}

func parseSubscribe(buf []byte, maxTopicLen int) (Command, error) {
	rest := buf[len(subPrefix):]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	if !validTopicLen(len(rest), maxTopicLen) {
		return Command{}, ErrMalformedSubscribe
	}
	return Command{Kind: KindSubscribe, Topic: string(rest)}, nil
}

func parsePublish(buf []byte, maxTopicLen int) (Command, error) {
	rest := buf[len(pubPrefix):]
	i := bytes.IndexByte(rest, '\n')
	if i < 0 || !validTopicLen(i, maxTopicLen) {
		return Command{}, ErrMalformedPublish
	}
	return Command{Kind: KindPublish, Topic: string(rest[:i]), Message: rest[i+1:]}, nil
}

// ValidTopic reports whether topic may be subscribed or published to.
func ValidTopic(topic string, maxTopicLen int) bool {
	return validTopicLen(len(topic), maxTopicLen) && !bytes.Contains([]byte(topic), []byte{'\n'})
}

func validTopicLen(n, maxTopicLen int) bool {
	if maxTopicLen <= 0 {
		maxTopicLen = DefaultMaxTopicLen
	}
	return n > 0 && n < maxTopicLen
}

// FormatDelivery frames message for live delivery to a subscriber of topic.
func FormatDelivery(topic string, message []byte) []byte {
	out := make([]byte, 0, len(msgPrefix)+len(topic)+1+len(message))
	out = append(out, msgPrefix...)
	out = append(out, topic...)
	out = append(out, '\n')
	return append(out, message...)
}

// FormatSubscribe builds the request a subscriber sends.
func FormatSubscribe(topic string) []byte {
	out := make([]byte, 0, len(subPrefix)+len(topic)+1)
	out = append(out, subPrefix...)
	out = append(out, topic...)
	return append(out, '\n')
}

// FormatPublish builds the request a publisher sends.
func FormatPublish(topic string, message []byte) []byte {
	out := make([]byte, 0, len(pubPrefix)+len(topic)+1+len(message))
	out = append(out, pubPrefix...)
	out = append(out, topic...)
	out = append(out, '\n')
	return append(out, message...)
}

// Reason maps a Parse error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedSubscribe):
		return "malformed_sub"
	case errors.Is(err, ErrMalformedPublish):
		return "malformed_pub"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrUnexpectedData):
		return "unexpected_data"
	default:
		return "other"
	}
}
