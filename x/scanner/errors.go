package scanner

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownElement   = errors.New("unknown element")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrMissingAttribute = errors.New("missing required attribute")
	ErrDuplicateElement = errors.New("element may appear only once")
	ErrBadNumber        = errors.New("malformed number")
	ErrBadValue         = errors.New("invalid attribute value")
	ErrUnexpectedText   = errors.New("unexpected text content")
	ErrNoInterfaces     = errors.New("protocol declares no interfaces")
	ErrUnknownFormat    = errors.New("unknown document format")
	ErrEmptyDocument    = errors.New("document has no protocol element")
)

// ParseError locates a parse failure inside a document.
type ParseError struct {
	Document string
	// Path is the element path, e.g. protocol[wayland]/interface[wl_display]/request[sync].
	Path string
	// Line is 1-based; 0 when unknown.
	Line int
	Err  error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	loc := e.Document
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", loc, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

// Unwrap returns the underlying cause
func (e *ParseError) Unwrap() error {
	return e.Err
}
