package eventlog

import (
	"encoding/binary"
	"net/url"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - log/{escaped topic}/m
// - log/{escaped topic}/e/{seq_be8}
//
// Topics are path-escaped so a topic containing '/' can never share a prefix
// with another topic's entries.

var (
	sep        = byte('/')
	logPrefix  = []byte("log/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func appendTopic(dst []byte, topic string) []byte {
	dst = append(dst, logPrefix...)
	return append(dst, url.PathEscape(topic)...)
}

// KeyLogMeta builds the topic metadata key.
func KeyLogMeta(topic string) []byte {
	k := make([]byte, 0, len(topic)+16)
	k = appendTopic(k, topic)
	k = append(k, metaSuffix...)
	return k
}

// KeyLogEntry builds the entry key with a big-endian sequence for proper ordering.
func KeyLogEntry(topic string, seq uint64) []byte {
	k := make([]byte, 0, len(topic)+24)
	k = appendTopic(k, topic)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// entryBounds returns iterator bounds covering every entry of topic.
func entryBounds(topic string) (low, high []byte) {
	low = KeyLogEntry(topic, 0)
	high = append(KeyLogEntry(topic, ^uint64(0)), 0x00)
	return low, high
}

// seqFromKey extracts the trailing sequence of an entry key.
func seqFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// topicFromMetaKey reverses KeyLogMeta. ok is false for any other key.
func topicFromMetaKey(key []byte) (string, bool) {
	if len(key) < len(logPrefix)+len(metaSuffix) {
		return "", false
	}
	if string(key[:len(logPrefix)]) != string(logPrefix) || string(key[len(key)-len(metaSuffix):]) != string(metaSuffix) {
		return "", false
	}
	seg := key[len(logPrefix) : len(key)-len(metaSuffix)]
	for _, c := range seg {
		if c == sep {
			return "", false
		}
	}
	topic, err := url.PathUnescape(string(seg))
	if err != nil {
		return "", false
	}
	return topic, true
}
