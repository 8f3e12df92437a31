// Package scanner parses protocol description documents into the model of
// package protocol.
//
// Two syntaxes are accepted: the Wayland XML format and a YAML rendering with
// the same shape. Both are strict. Unknown elements, attributes or keys,
// missing required attributes and malformed numbers fail with a *ParseError
// that names the document, the element path and, where known, the line.
//
// The scanner does not resolve references between interfaces or enums; that
// is left to package validator.
package scanner
