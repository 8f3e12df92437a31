package wire

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var everyKind = &MessageSpec{
	Name: "everything",
	Args: []ArgSpec{
		{Name: "i", Kind: KindInt},
		{Name: "u", Kind: KindUint},
		{Name: "f", Kind: KindFixed},
		{Name: "s", Kind: KindString},
		{Name: "ns", Kind: KindString, Nullable: true},
		{Name: "o", Kind: KindObject, Interface: "thing"},
		{Name: "no", Kind: KindObject, Interface: "thing", Nullable: true},
		{Name: "id", Kind: KindNewID, Interface: "thing"},
		{Name: "dyn", Kind: KindNewID},
		{Name: "a", Kind: KindArray},
		{Name: "fd", Kind: KindFD},
	},
}

func TestRoundTripEveryKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []Arg
	}{
		{
			name: "typical",
			args: []Arg{
				Int(-5), Uint(7), FixedArg(FixedFromFloat(1.5)),
				String("hello"), String("x"),
				Object(3), Object(4),
				NewID(5), DynamicNewID("wl_seat", 7, 6),
				Array([]byte{1, 2, 3}), FD(9),
			},
		},
		{
			name: "boundaries",
			args: []Arg{
				Int(math.MinInt32), Uint(math.MaxUint32), FixedArg(Fixed(math.MaxInt32)),
				String(""), NullString(),
				Object(math.MaxUint32), Object(0),
				NewID(1), DynamicNewID("a", 1, math.MaxUint32),
				Array([]byte{}), FD(0),
			},
		},
		{
			name: "aligned lengths",
			args: []Arg{
				Int(0), Uint(0), FixedArg(0),
				String("abc"), String("abcd"),
				Object(1), Object(1),
				NewID(2), DynamicNewID("abcdefg", 2, 3),
				Array([]byte{1, 2, 3, 4}), FD(3),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			body, fds, err := MarshalArgs(everyKind, tc.args)
			require.NoError(t, err)
			assert.Zero(t, len(body)%4, "body must stay word aligned")
			require.Len(t, fds, 1)

			got, used, err := UnmarshalArgs(everyKind, body, fds)
			require.NoError(t, err)
			assert.Equal(t, 1, used)
			require.Len(t, got, len(tc.args))
			for i := range got {
				assert.True(t, tc.args[i].Equal(got[i]), "arg %s: want %+v got %+v", everyKind.Args[i].Name, tc.args[i], got[i])
			}
		})
	}
}

func TestStringEncoding(t *testing.T) {
	t.Parallel()

	spec := &MessageSpec{Name: "s", Args: []ArgSpec{{Name: "v", Kind: KindString, Nullable: true}}}

	body, _, err := MarshalArgs(spec, []Arg{String("")})
	require.NoError(t, err)
	assert.Equal(t, 8, len(body), "empty string is a length word plus a padded NUL")
	assert.Equal(t, uint32(1), byteOrder.Uint32(body))

	body, _, err = MarshalArgs(spec, []Arg{NullString()})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, body)

	body, _, err = MarshalArgs(spec, []Arg{String("abc")})
	require.NoError(t, err)
	assert.Equal(t, 8, len(body))
	assert.Equal(t, []byte{'a', 'b', 'c', 0}, body[4:])
}

func TestMarshalRejects(t *testing.T) {
	t.Parallel()

	strict := &MessageSpec{Name: "m", Args: []ArgSpec{
		{Name: "s", Kind: KindString},
		{Name: "o", Kind: KindObject, Interface: "x"},
	}}
	dyn := &MessageSpec{Name: "bind", Args: []ArgSpec{{Name: "id", Kind: KindNewID}}}

	cases := []struct {
		name string
		spec *MessageSpec
		args []Arg
		want error
	}{
		{"count", strict, []Arg{String("a")}, ErrArgCount},
		{"kind", strict, []Arg{Uint(1), Object(1)}, ErrArgKind},
		{"null string", strict, []Arg{NullString(), Object(1)}, ErrNullArg},
		{"null object", strict, []Arg{String("a"), Object(0)}, ErrNullArg},
		{"embedded nul", strict, []Arg{String("a\x00b"), Object(1)}, ErrStringNUL},
		{"zero new_id", dyn, []Arg{DynamicNewID("x", 1, 0)}, ErrNullArg},
		{"dynamic without interface", dyn, []Arg{NewID(3)}, ErrArgKind},
		{"too large", strict, []Arg{String(strings.Repeat("x", MaxMessageSize)), Object(1)}, ErrMessageTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := MarshalArgs(tc.spec, tc.args)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMessageSizeLimit(t *testing.T) {
	t.Parallel()

	spec := &MessageSpec{Name: "blob", Args: []ArgSpec{{Name: "a", Kind: KindArray}}}

	_, _, err := MarshalArgs(spec, []Arg{Array(make([]byte, MaxMessageSize-HeaderSize-4))})
	require.NoError(t, err)

	_, _, err = MarshalArgs(spec, []Arg{Array(make([]byte, MaxMessageSize-HeaderSize-3))})
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestUnmarshalRejects(t *testing.T) {
	t.Parallel()

	str := &MessageSpec{Name: "s", Args: []ArgSpec{{Name: "v", Kind: KindString}}}
	obj := &MessageSpec{Name: "o", Args: []ArgSpec{{Name: "v", Kind: KindObject}}}
	fd := &MessageSpec{Name: "f", Args: []ArgSpec{{Name: "v", Kind: KindFD}}}
	u := &MessageSpec{Name: "u", Args: []ArgSpec{{Name: "v", Kind: KindUint}}}

	word := func(v uint32) []byte { return byteOrder.AppendUint32(nil, v) }

	cases := []struct {
		name string
		spec *MessageSpec
		body []byte
		want error
	}{
		{"truncated word", u, []byte{1, 2}, ErrTruncated},
		{"length past end", str, append(word(9), 'a', 'b', 'c', 0), ErrBadLength},
		{"huge length", str, word(math.MaxUint32), ErrBadLength},
		{"unterminated", str, append(word(4), 'a', 'b', 'c', 'd'), ErrUnterminated},
		{"embedded nul", str, append(word(4), 'a', 0, 'b', 0), ErrStringNUL},
		{"leading nul", str, append(word(4), 0, 'a', 'b', 0), ErrStringNUL},
		{"null non-nullable string", str, word(0), ErrNullArg},
		{"null non-nullable object", obj, word(0), ErrNullArg},
		{"missing fd", fd, nil, ErrMissingFD},
		{"trailing bytes", u, append(word(1), word(2)...), ErrTrailingBytes},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := UnmarshalArgs(tc.spec, tc.body, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUnmarshalCopiesArrays(t *testing.T) {
	t.Parallel()

	spec := &MessageSpec{Name: "a", Args: []ArgSpec{{Name: "v", Kind: KindArray}}}
	body, _, err := MarshalArgs(spec, []Arg{Array([]byte{1, 2})})
	require.NoError(t, err)

	got, _, err := UnmarshalArgs(spec, body, nil)
	require.NoError(t, err)
	body[4] = 9
	assert.Equal(t, []byte{1, 2}, got[0].Array)
}

func TestFixed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Fixed(256), FixedFromInt(1))
	assert.Equal(t, Fixed(-384), FixedFromFloat(-1.5))
	assert.InDelta(t, 2.25, FixedFromFloat(2.25).Float(), 1e-9)
	assert.Equal(t, int32(-1), FixedFromFloat(-1.5).Int())
	assert.Equal(t, "0.5", FixedFromFloat(0.5).String())
}
