package wire

import "bytes"

// Arg is one argument value. Kind selects which field carries the value.
type Arg struct {
	Kind   Kind
	Int    int32
	Uint   uint32
	Fixed  Fixed
	String string
	// Null marks an absent nullable string. Absent objects use Object == 0.
	Null   bool
	Object ObjectID
	Array  []byte
	FD     int
	// Interface and Version are only set for new_id arguments whose
	// interface travels on the wire.
	Interface string
	Version   uint32
	// Handle optionally carries the runtime object an object argument was
	// taken from. It never reaches the wire; the session uses it to reject
	// references to objects that died, even after their id was reused.
	Handle any
}

// Int returns a signed integer argument.
func Int(v int32) Arg { return Arg{Kind: KindInt, Int: v} }

// Uint returns an unsigned integer argument.
func Uint(v uint32) Arg { return Arg{Kind: KindUint, Uint: v} }

// FixedArg returns a fixed-point argument.
func FixedArg(v Fixed) Arg { return Arg{Kind: KindFixed, Fixed: v} }

// String returns a string argument.
func String(s string) Arg { return Arg{Kind: KindString, String: s} }

// NullString returns an absent nullable string.
func NullString() Arg { return Arg{Kind: KindString, Null: true} }

// Object returns an object reference. id 0 is the null object.
func Object(id ObjectID) Arg { return Arg{Kind: KindObject, Object: id} }

// NewID returns a new_id argument. An id of 0 asks the session to allocate one.
func NewID(id ObjectID) Arg { return Arg{Kind: KindNewID, Object: id} }

// DynamicNewID returns a new_id argument for an unconstrained interface.
func DynamicNewID(iface string, version uint32, id ObjectID) Arg {
	return Arg{Kind: KindNewID, Object: id, Interface: iface, Version: version}
}

// Array returns a byte array argument.
func Array(b []byte) Arg { return Arg{Kind: KindArray, Array: b} }

// FD returns a file descriptor argument.
func FD(fd int) Arg { return Arg{Kind: KindFD, FD: fd} }

// Equal reports whether two arguments carry the same wire value.
func (a Arg) Equal(b Arg) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindUint:
		return a.Uint == b.Uint
	case KindFixed:
		return a.Fixed == b.Fixed
	case KindString:
		return a.Null == b.Null && a.String == b.String
	case KindObject:
		return a.Object == b.Object
	case KindNewID:
		return a.Object == b.Object && a.Interface == b.Interface && a.Version == b.Version
	case KindArray:
		return bytes.Equal(a.Array, b.Array)
	case KindFD:
		return a.FD == b.FD
	default:
		return false
	}
}
