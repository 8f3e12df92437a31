package session

import (
	"errors"
	"fmt"

	"github.com/compose-network/wlscanner/x/wire"
)

// ErrorKind separates faults the peer caused from mistakes of the local caller.
type ErrorKind int

const (
	// ErrorKindProtocol is a fatal protocol violation by the peer. The
	// connection must be closed.
	ErrorKindProtocol ErrorKind = iota
	// ErrorKindMisuse is a local caller error detected before any byte was
	// written. Connection state is untouched.
	ErrorKindMisuse
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindProtocol:
		return "protocol_fault"
	case ErrorKindMisuse:
		return "caller_misuse"
	default:
		return "unknown"
	}
}

var (
	ErrUnknownObject      = errors.New("session: unknown object")
	ErrDestroyedObject    = errors.New("session: object already destroyed")
	ErrUnknownOpcode      = errors.New("session: unknown opcode")
	ErrVersionUnavailable = errors.New("session: message not available at negotiated version")
	ErrWrongInterface     = errors.New("session: object bound to a different interface")
	ErrUnknownInterface   = errors.New("session: interface not supported locally")
	ErrBadVersion         = errors.New("session: invalid interface version")
	ErrIDOutOfRange       = errors.New("session: object id outside the sender's range")
	ErrIDInUse            = errors.New("session: object id still in use")
	ErrIDOutOfSequence    = errors.New("session: object id skips unallocated ids")
	ErrIDExhausted        = errors.New("session: object id range exhausted")
	ErrNotDestroyed       = errors.New("session: object id is not destroyed")
	ErrPresetNewID        = errors.New("session: new_id must be allocated by the session")
)

// Error is returned by Send, Decode and Dispatch.
type Error struct {
	Kind      ErrorKind
	Object    wire.ObjectID
	Interface string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *Error) Error() string {
	where := fmt.Sprintf("object %d", e.Object)
	if e.Interface != "" {
		where = fmt.Sprintf("%s@%d", e.Interface, e.Object)
	}
	if e.Message != "" {
		where += "." + e.Message
	}
	return fmt.Sprintf("session %s on %s: %v", e.Kind, where, e.Err)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// IsProtocolFault reports whether err is a fatal protocol violation.
func IsProtocolFault(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindProtocol
}

// IsMisuse reports whether err is a recoverable caller error.
func IsMisuse(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindMisuse
}

func newError(kind ErrorKind, obj *Object, spec *wire.MessageSpec, err error) *Error {
	e := &Error{Kind: kind, Err: err}
	if obj != nil {
		e.Object = obj.id
		e.Interface = obj.iface.Name
	}
	if spec != nil {
		e.Message = spec.Name
	}
	return e
}

func fault(obj *Object, spec *wire.MessageSpec, err error) *Error {
	return newError(ErrorKindProtocol, obj, spec, err)
}

func misuse(obj *Object, spec *wire.MessageSpec, err error) *Error {
	return newError(ErrorKindMisuse, obj, spec, err)
}
