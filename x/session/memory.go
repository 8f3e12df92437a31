package session

import (
	"errors"

	"github.com/compose-network/wlscanner/x/wire"
)

// MemoryTransport buffers outbound messages in memory. It connects two
// sessions in tests and tools without a socket.
type MemoryTransport struct {
	data []byte
	fds  []int
	// Fail, when set, is returned by the next WriteMessage instead of
	// buffering.
	Fail error
}

// WriteMessage implements Transport.
func (t *MemoryTransport) WriteMessage(data []byte, fds []int) error {
	if t.Fail != nil {
		err := t.Fail
		t.Fail = nil
		return err
	}
	t.data = append(t.data, data...)
	t.fds = append(t.fds, fds...)
	return nil
}

// Bytes returns the buffered wire bytes.
func (t *MemoryTransport) Bytes() []byte { return t.data }

// FDs returns the buffered side-channel descriptors.
func (t *MemoryTransport) FDs() []int { return t.fds }

// Pending reports whether undelivered bytes remain.
func (t *MemoryTransport) Pending() bool { return len(t.data) > 0 }

// DeliverTo dispatches every buffered message to peer in order and returns
// how many were delivered. Delivery stops at the first error; the failing
// message is dropped.
func (t *MemoryTransport) DeliverTo(peer *Session) (int, error) {
	n := 0
	for len(t.data) > 0 {
		h, body, rest, err := wire.SplitMessage(t.data)
		if err != nil {
			if errors.Is(err, wire.ErrTruncated) {
				return n, nil
			}
			t.data = nil
			return n, fault(nil, nil, err)
		}
		t.data = rest
		used, err := peer.Dispatch(wire.Message{
			Sender: h.Sender,
			Opcode: h.Opcode,
			Body:   body,
			FDs:    t.fds,
		})
		t.fds = t.fds[used:]
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
