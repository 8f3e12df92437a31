package wire

import "errors"

// Errors returned while marshalling. These are raised before any byte is
// produced.
var (
	ErrArgCount        = errors.New("wire: argument count does not match signature")
	ErrArgKind         = errors.New("wire: argument kind does not match signature")
	ErrNullArg         = errors.New("wire: null value for non-nullable argument")
	ErrStringNUL       = errors.New("wire: string contains a NUL byte")
	ErrMessageTooLarge = errors.New("wire: message exceeds maximum size")
)

// Errors returned while unmarshalling. The peer's stream can no longer be
// trusted once any of these is seen.
var (
	ErrTruncated     = errors.New("wire: truncated message")
	ErrBadLength     = errors.New("wire: length prefix exceeds remaining buffer")
	ErrBadSize       = errors.New("wire: invalid message size in header")
	ErrUnterminated  = errors.New("wire: string is not NUL terminated")
	ErrMissingFD     = errors.New("wire: file descriptor missing from side channel")
	ErrTrailingBytes = errors.New("wire: trailing bytes after last argument")
)
