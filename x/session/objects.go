package session

import (
	"fmt"

	"github.com/compose-network/wlscanner/x/wire"
)

// Identifier ranges. The client allocates ids for objects it creates, the
// server for objects it creates; the two never overlap.
const (
	ClientIDMin wire.ObjectID = 0x00000001
	ClientIDMax wire.ObjectID = 0xfeffffff
	ServerIDMin wire.ObjectID = 0xff000000
	ServerIDMax wire.ObjectID = 0xffffffff
)

// maxBindGap bounds how many unused ids a well-known binding may skip, so a
// large well-known id cannot grow the table without limit.
const maxBindGap = 1 << 12

// Object is a live binding of an id to an interface at a negotiated version.
type Object struct {
	id      wire.ObjectID
	iface   *wire.Interface
	version uint32
	gen     uint32
	session *Session
	handler Handler
	data    any
}

// ID returns the wire identifier.
func (o *Object) ID() wire.ObjectID { return o.id }

// Interface returns the bound interface descriptor.
func (o *Object) Interface() *wire.Interface { return o.iface }

// Version returns the negotiated version.
func (o *Object) Version() uint32 { return o.version }

// Generation counts how many times the id's slot has been used.
func (o *Object) Generation() uint32 { return o.gen }

// Session returns the owning session.
func (o *Object) Session() *Session { return o.session }

// Handler returns the dispatch target, usually a generated typed handle.
func (o *Object) Handler() Handler { return o.handler }

// SetHandler installs the dispatch target for incoming messages.
func (o *Object) SetHandler(h Handler) { o.handler = h }

// Data returns the user data attached to the object.
func (o *Object) Data() any { return o.data }

// SetData attaches user data.
func (o *Object) SetData(v any) { o.data = v }

// Alive reports whether the object is still the live occupant of its id.
func (o *Object) Alive() bool {
	if o == nil || o.session == nil {
		return false
	}
	cur, ok := o.session.objects.Lookup(o.id)
	return ok && cur == o
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%d#%d", o.iface.Name, o.id, o.gen)
}

type slotState uint8

const (
	slotFree slotState = iota
	slotLive
	slotDestroyed
)

type slot struct {
	obj   *Object
	state slotState
	gen   uint32
}

// idRange is an arena of slots indexed by id-min. free holds released
// indexes for reuse, newest first.
type idRange struct {
	min, max wire.ObjectID
	slots    []slot
	free     []int
}

func (r *idRange) contains(id wire.ObjectID) bool {
	return id >= r.min && id <= r.max
}

// ObjectMap is the per-connection identifier table. It is not safe for
// concurrent use; the owning connection serialises access.
type ObjectMap struct {
	client idRange
	server idRange
	live   int
	epoch  uint64
}

// NewObjectMap returns an empty table.
func NewObjectMap() *ObjectMap {
	m := &ObjectMap{}
	m.Reset()
	return m
}

// Reset drops every object and starts a new epoch. Handles from the previous
// epoch are no longer Alive.
func (m *ObjectMap) Reset() {
	m.client = idRange{min: ClientIDMin, max: ClientIDMax}
	m.server = idRange{min: ServerIDMin, max: ServerIDMax}
	m.live = 0
	m.epoch++
}

// Epoch increments on every Reset.
func (m *ObjectMap) Epoch() uint64 { return m.epoch }

// Len returns the number of live objects.
func (m *ObjectMap) Len() int { return m.live }

func (m *ObjectMap) rangeFor(id wire.ObjectID) *idRange {
	switch {
	case m.client.contains(id):
		return &m.client
	case m.server.contains(id):
		return &m.server
	default:
		return nil
	}
}

func (m *ObjectMap) slotFor(id wire.ObjectID) *slot {
	r := m.rangeFor(id)
	if r == nil {
		return nil
	}
	idx := int(id - r.min)
	if idx >= len(r.slots) {
		return nil
	}
	return &r.slots[idx]
}

// Lookup returns the live object bound to id.
func (m *ObjectMap) Lookup(id wire.ObjectID) (*Object, bool) {
	s := m.slotFor(id)
	if s == nil || s.state != slotLive {
		return nil, false
	}
	return s.obj, true
}

// Destroyed reports whether id was used and destroyed but not yet released.
func (m *ObjectMap) Destroyed(id wire.ObjectID) bool {
	s := m.slotFor(id)
	return s != nil && s.state == slotDestroyed
}

// allocate binds the next free id of r to a new object.
func (m *ObjectMap) allocate(r *idRange, iface *wire.Interface, version uint32) (*Object, error) {
	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		if wire.ObjectID(len(r.slots)) > r.max-r.min {
			return nil, ErrIDExhausted
		}
		idx = len(r.slots)
		r.slots = append(r.slots, slot{})
	}
	return m.occupy(r, idx, iface, version), nil
}

// insert binds a peer-chosen id. Ids must be taken in sequence: either a
// free slot or the next unused one. gaps permits skipping ahead, used for
// well-known bindings.
func (m *ObjectMap) insert(id wire.ObjectID, iface *wire.Interface, version uint32, gaps bool) (*Object, error) {
	r := m.rangeFor(id)
	if r == nil {
		return nil, ErrIDOutOfRange
	}
	idx := int(id - r.min)
	switch {
	case idx < len(r.slots):
		if r.slots[idx].state != slotFree {
			return nil, ErrIDInUse
		}
		r.dropFree(idx)
	case idx == len(r.slots):
		r.slots = append(r.slots, slot{})
	case gaps:
		if idx-len(r.slots) > maxBindGap {
			return nil, ErrIDOutOfRange
		}
		for i := len(r.slots); i < idx; i++ {
			r.free = append(r.free, i)
		}
		r.slots = append(r.slots, make([]slot, idx-len(r.slots)+1)...)
	default:
		return nil, ErrIDOutOfSequence
	}
	return m.occupy(r, idx, iface, version), nil
}

func (r *idRange) dropFree(idx int) {
	for i, f := range r.free {
		if f == idx {
			r.free = append(r.free[:i], r.free[i+1:]...)
			return
		}
	}
}

func (m *ObjectMap) occupy(r *idRange, idx int, iface *wire.Interface, version uint32) *Object {
	s := &r.slots[idx]
	s.gen++
	s.state = slotLive
	s.obj = &Object{
		id:      r.min + wire.ObjectID(idx),
		iface:   iface,
		version: version,
		gen:     s.gen,
	}
	m.live++
	return s.obj
}

// destroy marks id dead. The id stays unusable until released or reset.
func (m *ObjectMap) destroy(id wire.ObjectID) {
	s := m.slotFor(id)
	if s == nil || s.state != slotLive {
		return
	}
	s.state = slotDestroyed
	m.live--
}

// abandon undoes an allocation that never reached the wire.
func (m *ObjectMap) abandon(o *Object) {
	r := m.rangeFor(o.id)
	if r == nil {
		return
	}
	idx := int(o.id - r.min)
	if idx >= len(r.slots) || r.slots[idx].obj != o || r.slots[idx].state != slotLive {
		return
	}
	m.live--
	if idx == len(r.slots)-1 && r.slots[idx].gen == 1 {
		r.slots = r.slots[:idx]
		return
	}
	r.slots[idx].state = slotFree
	r.slots[idx].obj = nil
	r.free = append(r.free, idx)
}

// Release makes a destroyed id available for reuse once both peers agree it
// is gone.
func (m *ObjectMap) Release(id wire.ObjectID) error {
	r := m.rangeFor(id)
	if r == nil {
		return ErrIDOutOfRange
	}
	idx := int(id - r.min)
	if idx >= len(r.slots) || r.slots[idx].state != slotDestroyed {
		return ErrNotDestroyed
	}
	r.slots[idx].state = slotFree
	r.slots[idx].obj = nil
	r.free = append(r.free, idx)
	return nil
}
