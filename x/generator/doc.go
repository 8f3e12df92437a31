// Package generator renders validated protocol models into Go packages.
//
// For a protocol named foo the output is three packages below the configured
// import path:
//
//	foo/protocol.go        wire descriptors, opcode and version constants, enums
//	foo/client/client.go   typed handles sending requests and receiving events
//	foo/server/server.go   typed resources sending events and receiving requests
//
// Opcodes are declaration indices, so appending a message to an interface
// never renumbers the existing ones. Handles do not marshal anything
// themselves; they call session.Send and implement session.Handler, so all
// lifecycle and version rules are enforced by the session.
package generator
