package wire

import (
	"fmt"
	"math"
)

// ObjectID identifies a live object on one connection. Zero is the null object.
type ObjectID uint32

// Kind is the wire encoding class of an argument.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindUint
	KindFixed
	KindString
	KindObject
	KindNewID
	KindArray
	KindFD
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFixed:
		return "fixed"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindNewID:
		return "new_id"
	case KindArray:
		return "array"
	case KindFD:
		return "fd"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Fixed is a signed 24.8 fixed-point number.
type Fixed int32

// FixedFromFloat converts f to the nearest representable Fixed.
func FixedFromFloat(f float64) Fixed {
	return Fixed(int32(math.Round(f * 256)))
}

// FixedFromInt converts an integer to Fixed.
func FixedFromInt(i int32) Fixed {
	return Fixed(i << 8)
}

// Float returns the value as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / 256
}

// Int returns the integral part, truncated toward zero.
func (f Fixed) Int() int32 {
	return int32(f) / 256
}

func (f Fixed) String() string {
	return fmt.Sprintf("%g", f.Float())
}

// ArgSpec describes one positional argument of a message.
type ArgSpec struct {
	Name     string
	Kind     Kind
	Nullable bool
	// Interface constrains object and new_id arguments. Empty means any
	// interface; for new_id the interface name and version are then carried
	// in the message itself.
	Interface string
}

// Dynamic reports whether a new_id argument carries its interface inline.
func (a ArgSpec) Dynamic() bool {
	return a.Kind == KindNewID && a.Interface == ""
}

// MessageSpec describes a request or an event. Its position in the owning
// slice is its opcode.
type MessageSpec struct {
	Name       string
	Since      uint32
	Destructor bool
	Args       []ArgSpec
}

// Interface is the runtime descriptor of an interface shared by both roles.
type Interface struct {
	Name     string
	Version  uint32
	Requests []MessageSpec
	Events   []MessageSpec
}

// Message returns the spec for opcode in the requested direction.
func (i *Interface) Message(events bool, opcode uint16) (*MessageSpec, bool) {
	msgs := i.Requests
	if events {
		msgs = i.Events
	}
	if int(opcode) >= len(msgs) {
		return nil, false
	}
	return &msgs[opcode], true
}

func (i *Interface) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s@%d", i.Name, i.Version)
}

// Message is one framed inbound message as delivered by the transport.
type Message struct {
	Sender ObjectID
	Opcode uint16
	Body   []byte
	// FDs is the side-channel queue aligned with the fd arguments of this
	// and possibly following messages.
	FDs []int
}
