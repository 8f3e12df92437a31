// Package wire defines the byte-level contract both generated roles share.
//
// A message is an 8-byte header (sender object id, then size<<16|opcode)
// followed by the arguments in declaration order. Integers, fixed-point
// numbers and object ids take one 32-bit word; strings and arrays are a
// 32-bit length followed by the payload padded to a word boundary; file
// descriptors take no inline bytes and travel on a side channel.
//
// Generated code embeds *Interface descriptors and calls into this package
// through the session runtime; nothing here keeps state between calls.
package wire
