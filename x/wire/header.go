package wire

import "fmt"

const (
	// HeaderSize is the size of the sender/opcode/size prefix of every message.
	HeaderSize = 8
	// MaxMessageSize bounds header plus body, matching libwayland's
	// connection buffer.
	MaxMessageSize = 4096
)

// Header is the fixed prefix of every message.
type Header struct {
	Sender ObjectID
	Opcode uint16
	// Size is the total message size including the header.
	Size uint16
}

// AppendMessage appends a complete framed message to buf.
func AppendMessage(buf []byte, sender ObjectID, opcode uint16, body []byte) ([]byte, error) {
	size := HeaderSize + len(body)
	if size > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}
	buf = byteOrder.AppendUint32(buf, uint32(sender))
	buf = byteOrder.AppendUint32(buf, uint32(size)<<16|uint32(opcode))
	return append(buf, body...), nil
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrTruncated
	}
	word := byteOrder.Uint32(b[4:8])
	h := Header{
		Sender: ObjectID(byteOrder.Uint32(b[0:4])),
		Opcode: uint16(word),
		Size:   uint16(word >> 16),
	}
	if h.Size < HeaderSize || h.Size%4 != 0 || int(h.Size) > MaxMessageSize {
		return Header{}, fmt.Errorf("%w: %d", ErrBadSize, h.Size)
	}
	return h, nil
}

// SplitMessage cuts the first complete message off buf. ErrTruncated means
// more bytes are needed.
func SplitMessage(buf []byte) (Header, []byte, []byte, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return Header{}, nil, buf, err
	}
	if len(buf) < int(h.Size) {
		return Header{}, nil, buf, ErrTruncated
	}
	return h, buf[HeaderSize:h.Size], buf[h.Size:], nil
}
