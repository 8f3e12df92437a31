// Package session is the runtime shared by generated client and server code.
//
// A Session owns one connection's identifier namespace. Send marshals an
// outbound message, allocating ids for new_id arguments from the local range
// and destroying the target of a destructor. Decode does the reverse for
// inbound messages and treats every inconsistency as a protocol fault.
//
// Errors come in two kinds. Caller misuse (sending on a destroyed object,
// sending a message above the negotiated version, passing an object of the
// wrong interface) is detected before any byte is written and leaves the
// session untouched. Protocol faults are violations by the peer; the
// connection should be closed.
//
// Destroyed ids are not reused until Release is called for them, which is
// how the delete_id handshake of the core protocol maps onto the table.
package session
