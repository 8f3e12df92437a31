// Package protocol holds the in-memory model of a protocol description
// document: interfaces, their requests and events, arguments and enums.
//
// The model is produced by the scanner, checked by the validator and is the
// single source both generated roles are derived from. Declaration order is
// significant everywhere: argument order is the wire order and message order
// fixes the opcodes.
package protocol
