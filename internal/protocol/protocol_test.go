package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	long := strings.Repeat("x", 50)
	longest := strings.Repeat("y", 49)
	cases := []struct {
		name    string
		state   State
		in      string
		want    Command
		wantErr error
	}{
		{"sub with newline", StateUnknown, "SUB weather\n", Command{Kind: KindSubscribe, Topic: "weather"}, nil},
		{"sub without newline", StateUnknown, "SUB weather", Command{Kind: KindSubscribe, Topic: "weather"}, nil},
		{"sub ignores trailing lines", StateUnknown, "SUB a\nextra", Command{Kind: KindSubscribe, Topic: "a"}, nil},
		{"sub longest topic", StateUnknown, "SUB " + longest, Command{Kind: KindSubscribe, Topic: longest}, nil},
		{"sub empty topic", StateUnknown, "SUB \n", Command{}, ErrMalformedSubscribe},
		{"sub empty buffer topic", StateUnknown, "SUB ", Command{}, ErrMalformedSubscribe},
		{"sub topic too long", StateUnknown, "SUB " + long, Command{}, ErrMalformedSubscribe},
		{"pub", StateUnknown, "PUB weather\nsunny", Command{Kind: KindPublish, Topic: "weather", Message: []byte("sunny")}, nil},
		{"pub keeps trailing newline", StateUnknown, "PUB t\nline one\nline two\n", Command{Kind: KindPublish, Topic: "t", Message: []byte("line one\nline two\n")}, nil},
		{"pub empty message", StateUnknown, "PUB t\n", Command{Kind: KindPublish, Topic: "t", Message: []byte{}}, nil},
		{"pub no newline", StateUnknown, "PUB weather", Command{}, ErrMalformedPublish},
		{"pub empty topic", StateUnknown, "PUB \nmsg", Command{}, ErrMalformedPublish},
		{"pub topic too long", StateUnknown, "PUB " + long + "\nmsg", Command{}, ErrMalformedPublish},
		{"pub from subscriber", StateSubscriber, "PUB t\nm", Command{Kind: KindPublish, Topic: "t", Message: []byte("m")}, nil},
		{"unknown command", StateUnknown, "HELLO", Command{}, ErrUnknownCommand},
		{"lowercase is unknown", StateUnknown, "sub weather", Command{}, ErrUnknownCommand},
		{"second sub is unexpected", StateSubscriber, "SUB other", Command{}, ErrUnexpectedData},
		{"subscriber chatter", StateSubscriber, "hello", Command{}, ErrUnexpectedData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.state, []byte(tc.in), DefaultMaxTopicLen)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v want %v", err, tc.wantErr)
			}
			if got.Kind != tc.want.Kind || got.Topic != tc.want.Topic || string(got.Message) != string(tc.want.Message) {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestParseCustomTopicLimit(t *testing.T) {
	if _, err := Parse(StateUnknown, []byte("SUB abcd"), 4); !errors.Is(err, ErrMalformedSubscribe) {
		t.Fatalf("expected 4-byte topic to exceed limit 4, got %v", err)
	}
	if _, err := Parse(StateUnknown, []byte("SUB abc"), 4); err != nil {
		t.Fatalf("3-byte topic should fit limit 4: %v", err)
	}
}

func TestFraming(t *testing.T) {
	if got := string(FormatDelivery("weather", []byte("sunny"))); got != "MSG weather\nsunny" {
		t.Fatalf("delivery = %q", got)
	}
	if got := string(FormatSubscribe("weather")); got != "SUB weather\n" {
		t.Fatalf("subscribe = %q", got)
	}
	pub := FormatPublish("weather", []byte("sunny"))
	cmd, err := Parse(StateUnknown, pub, DefaultMaxTopicLen)
	if err != nil || cmd.Topic != "weather" || string(cmd.Message) != "sunny" {
		t.Fatalf("publish frame did not parse back: %+v %v", cmd, err)
	}
}

func TestValidTopicAndReason(t *testing.T) {
	if ValidTopic("", DefaultMaxTopicLen) || ValidTopic("a\nb", DefaultMaxTopicLen) {
		t.Fatalf("empty and multi-line topics must be invalid")
	}
	if !ValidTopic("weather", DefaultMaxTopicLen) {
		t.Fatalf("weather must be valid")
	}
	if Reason(ErrUnknownCommand) != "unknown_command" || Reason(nil) != "" || Reason(errors.New("x")) != "other" {
		t.Fatalf("unexpected reason labels")
	}
}
