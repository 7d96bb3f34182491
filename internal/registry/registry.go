package registry

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rzbill/floq/internal/protocol"
	"github.com/rzbill/floq/pkg/id"
)

// ListenerSlot is the slot reserved for the listening socket.
const ListenerSlot = 0

var (
	ErrCapacityExceeded = errors.New("registry: capacity exceeded")
	ErrNoSuchConnection = errors.New("registry: no such connection")
	ErrInvalidTopic     = errors.New("registry: invalid topic")
)

// Connection is one accepted client.
type Connection struct {
	ID    id.ID
	Conn  net.Conn
	State protocol.State
	// Topic is set iff State is protocol.StateSubscriber.
	Topic string
}

// Registry maps slots to live connections.
type Registry struct {
	listener io.Closer
	slots    []*Connection // index 0 unused, see ListenerSlot
	live     int
}

// New returns a Registry with room for capacity client connections.
func New(capacity int) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	return &Registry{slots: make([]*Connection, capacity+1)}
}

// Capacity is the number of client slots.
func (r *Registry) Capacity() int { return len(r.slots) - 1 }

// Len is the number of live client connections.
func (r *Registry) Len() int { return r.live }

// SetListener records the listening socket in the reserved slot so CloseAll
// closes it too.
func (r *Registry) SetListener(l io.Closer) { r.listener = l }

// Accept places conn in the lowest free slot. On ErrCapacityExceeded the
// caller still owns conn and must close it.
func (r *Registry) Accept(cid id.ID, conn net.Conn) (int, error) {
	for slot := 1; slot < len(r.slots); slot++ {
		if r.slots[slot] == nil {
			r.slots[slot] = &Connection{ID: cid, Conn: conn, State: protocol.StateUnknown}
			r.live++
			return slot, nil
		}
	}
	return 0, fmt.Errorf("%w: %d connections", ErrCapacityExceeded, r.Capacity())
}

// Lookup returns the connection in slot if it is still the one identified
// by cid.
func (r *Registry) Lookup(slot int, cid id.ID) (*Connection, bool) {
	if slot <= ListenerSlot || slot >= len(r.slots) {
		return nil, false
	}
	c := r.slots[slot]
	if c == nil || c.ID != cid {
		return nil, false
	}
	return c, true
}

// Subscribe moves the connection in slot to the subscriber state for topic.
func (r *Registry) Subscribe(slot int, topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	c := r.get(slot)
	if c == nil {
		return ErrNoSuchConnection
	}
	c.State = protocol.StateSubscriber
	c.Topic = topic
	return nil
}

// Release closes the connection in slot and frees the slot. It reports
// whether a connection was released; releasing an empty slot is a no-op.
func (r *Registry) Release(slot int) bool {
	c := r.get(slot)
	if c == nil {
		return false
	}
	_ = c.Conn.Close()
	r.slots[slot] = nil
	r.live--
	return true
}

// FindSubscribers returns the slots subscribed to topic in ascending order.
func (r *Registry) FindSubscribers(topic string) []int {
	var out []int
	for slot := 1; slot < len(r.slots); slot++ {
		c := r.slots[slot]
		if c != nil && c.State == protocol.StateSubscriber && c.Topic == topic {
			out = append(out, slot)
		}
	}
	return out
}

// Get returns the connection in slot, whoever it belongs to.
func (r *Registry) Get(slot int) (*Connection, bool) {
	c := r.get(slot)
	return c, c != nil
}

// Subscribers counts live subscriber connections.
func (r *Registry) Subscribers() int {
	n := 0
	for _, c := range r.slots {
		if c != nil && c.State == protocol.StateSubscriber {
			n++
		}
	}
	return n
}

// Topics counts subscribers per topic.
func (r *Registry) Topics() map[string]int {
	out := map[string]int{}
	for _, c := range r.slots {
		if c != nil && c.State == protocol.StateSubscriber {
			out[c.Topic]++
		}
	}
	return out
}

// CloseAll closes the listener and releases every client slot.
func (r *Registry) CloseAll() {
	if r.listener != nil {
		_ = r.listener.Close()
		r.listener = nil
	}
	for slot := 1; slot < len(r.slots); slot++ {
		r.Release(slot)
	}
}

func (r *Registry) get(slot int) *Connection {
	if slot <= ListenerSlot || slot >= len(r.slots) {
		return nil
	}
	return r.slots[slot]
}
