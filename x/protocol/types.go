package protocol

import (
	"fmt"
	"strings"
)

// ArgType is the wire kind of a message argument.
type ArgType string

const (
	ArgInt    ArgType = "int"
	ArgUint   ArgType = "uint"
	ArgFixed  ArgType = "fixed"
	ArgString ArgType = "string"
	ArgObject ArgType = "object"
	ArgNewID  ArgType = "new_id"
	ArgArray  ArgType = "array"
	ArgFD     ArgType = "fd"
)

// ParseArgType maps the textual type attribute onto an ArgType.
func ParseArgType(s string) (ArgType, error) {
	switch t := ArgType(s); t {
	case ArgInt, ArgUint, ArgFixed, ArgString, ArgObject, ArgNewID, ArgArray, ArgFD:
		return t, nil
	default:
		return "", fmt.Errorf("unknown argument type %q", s)
	}
}

// Direction tells requests apart from events.
type Direction int

const (
	// Request travels from the initiator (client) to the responder (server).
	Request Direction = iota
	// Event travels from the responder (server) to the initiator (client).
	Event
)

func (d Direction) String() string {
	if d == Event {
		return "event"
	}
	return "request"
}

// Description is human readable documentation attached to a model node.
// It never affects the wire format.
type Description struct {
	Summary string `yaml:"summary,omitempty" json:"summary,omitempty"`
	Text    string `yaml:"text,omitempty" json:"text,omitempty"`
}

// IsZero reports whether no documentation is attached.
func (d Description) IsZero() bool {
	return d.Summary == "" && d.Text == ""
}

// Protocol is one parsed protocol description document.
type Protocol struct {
	Name        string       `yaml:"name" json:"name"`
	Document    string       `yaml:"-" json:"document,omitempty"`
	Copyright   string       `yaml:"copyright,omitempty" json:"copyright,omitempty"`
	Description Description  `yaml:"description,omitempty" json:"description,omitempty"`
	Interfaces  []*Interface `yaml:"interfaces" json:"interfaces"`
}

// Interface returns the interface with the given name, or nil.
func (p *Protocol) Interface(name string) *Interface {
	for _, iface := range p.Interfaces {
		if iface.Name == name {
			return iface
		}
	}
	return nil
}

// Interface is a named, versioned object type.
type Interface struct {
	Name        string      `yaml:"name" json:"name"`
	Version     uint32      `yaml:"version" json:"version"`
	Frozen      bool        `yaml:"frozen,omitempty" json:"frozen,omitempty"`
	Description Description `yaml:"description,omitempty" json:"description,omitempty"`
	Requests    []*Message  `yaml:"requests,omitempty" json:"requests,omitempty"`
	Events      []*Message  `yaml:"events,omitempty" json:"events,omitempty"`
	Enums       []*Enum     `yaml:"enums,omitempty" json:"enums,omitempty"`
}

// Messages returns the requests or events of the interface in opcode order.
func (i *Interface) Messages(dir Direction) []*Message {
	if dir == Event {
		return i.Events
	}
	return i.Requests
}

// Message looks up a message by name within one direction.
func (i *Interface) Message(dir Direction, name string) *Message {
	for _, m := range i.Messages(dir) {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Enum looks up an enum declared on the interface.
func (i *Interface) Enum(name string) *Enum {
	for _, e := range i.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Destructor returns the destructor message of a direction, if any.
func (i *Interface) Destructor(dir Direction) *Message {
	for _, m := range i.Messages(dir) {
		if m.Destructor {
			return m
		}
	}
	return nil
}

// Message is a request or an event.
type Message struct {
	Name            string      `yaml:"name" json:"name"`
	Opcode          uint16      `yaml:"-" json:"opcode"`
	Since           uint32      `yaml:"since,omitempty" json:"since"`
	DeprecatedSince uint32      `yaml:"deprecated_since,omitempty" json:"deprecated_since,omitempty"`
	Destructor      bool        `yaml:"destructor,omitempty" json:"destructor,omitempty"`
	Description     Description `yaml:"description,omitempty" json:"description,omitempty"`
	Args            []*Arg      `yaml:"args,omitempty" json:"args,omitempty"`
}

// NewIDs returns the new_id arguments of the message in declaration order.
func (m *Message) NewIDs() []*Arg {
	var out []*Arg
	for _, a := range m.Args {
		if a.Type == ArgNewID {
			out = append(out, a)
		}
	}
	return out
}

// Arg is one positional message argument.
type Arg struct {
	Name        string      `yaml:"name" json:"name"`
	Type        ArgType     `yaml:"type" json:"type"`
	Nullable    bool        `yaml:"allow_null,omitempty" json:"allow_null,omitempty"`
	Interface   string      `yaml:"interface,omitempty" json:"interface,omitempty"`
	Enum        string      `yaml:"enum,omitempty" json:"enum,omitempty"`
	Summary     string      `yaml:"summary,omitempty" json:"summary,omitempty"`
	Description Description `yaml:"description,omitempty" json:"description,omitempty"`
}

// EnumRef splits the enum attribute into an optional interface qualifier
// and the enum name. "wl_output.transform" yields ("wl_output", "transform").
func (a *Arg) EnumRef() (iface, enum string) {
	if i := strings.LastIndexByte(a.Enum, '.'); i >= 0 {
		return a.Enum[:i], a.Enum[i+1:]
	}
	return "", a.Enum
}

// Enum is a named set of integer constants.
type Enum struct {
	Name        string      `yaml:"name" json:"name"`
	Since       uint32      `yaml:"since,omitempty" json:"since"`
	Bitfield    bool        `yaml:"bitfield,omitempty" json:"bitfield,omitempty"`
	Description Description `yaml:"description,omitempty" json:"description,omitempty"`
	Entries     []*Entry    `yaml:"entries" json:"entries"`
}

// Entry is one label of an enum.
type Entry struct {
	Name            string      `yaml:"name" json:"name"`
	Value           uint32      `yaml:"value" json:"value"`
	Since           uint32      `yaml:"since,omitempty" json:"since"`
	DeprecatedSince uint32      `yaml:"deprecated_since,omitempty" json:"deprecated_since,omitempty"`
	Summary         string      `yaml:"summary,omitempty" json:"summary,omitempty"`
	Description     Description `yaml:"description,omitempty" json:"description,omitempty"`
}
