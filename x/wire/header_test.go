package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	body := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	buf, err := AppendMessage(nil, 0xff000001, 3, body)
	require.NoError(t, err)
	require.Len(t, buf, HeaderSize+len(body))

	h, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, Header{Sender: 0xff000001, Opcode: 3, Size: 16}, h)
	assert.Equal(t, uint32(16)<<16|3, byteOrder.Uint32(buf[4:8]))
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	a, err := AppendMessage(nil, 1, 0, []byte{9, 9, 9, 9})
	require.NoError(t, err)
	stream, err := AppendMessage(a, 2, 1, nil)
	require.NoError(t, err)

	h, body, rest, err := SplitMessage(stream)
	require.NoError(t, err)
	assert.Equal(t, ObjectID(1), h.Sender)
	assert.Equal(t, []byte{9, 9, 9, 9}, body)

	h, body, rest, err = SplitMessage(rest)
	require.NoError(t, err)
	assert.Equal(t, ObjectID(2), h.Sender)
	assert.Equal(t, uint16(1), h.Opcode)
	assert.Empty(t, body)
	assert.Empty(t, rest)

	_, _, rest, err = SplitMessage(stream[:10])
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Len(t, rest, 10)
}

func TestParseHeaderRejectsBadSize(t *testing.T) {
	t.Parallel()

	for _, size := range []uint32{0, 4, 10, MaxMessageSize + 4} {
		buf := byteOrder.AppendUint32(nil, 1)
		buf = byteOrder.AppendUint32(buf, size<<16)
		_, err := ParseHeader(buf)
		assert.ErrorIs(t, err, ErrBadSize, "size %d", size)
	}

	_, err := ParseHeader([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestAppendMessageTooLarge(t *testing.T) {
	t.Parallel()

	_, err := AppendMessage(nil, 1, 0, make([]byte, MaxMessageSize))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}
