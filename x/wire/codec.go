package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// byteOrder is the order of every 32-bit word on the wire. Peers share a
// host, so the host order is used.
var byteOrder = binary.NativeEndian

// MarshalArgs encodes args according to spec and returns the message body
// and the file descriptors to pass out of band, in order.
func MarshalArgs(spec *MessageSpec, args []Arg) ([]byte, []int, error) {
	return AppendArgs(make([]byte, 0, 4*len(args)), spec, args)
}

// AppendArgs is MarshalArgs appending to buf.
func AppendArgs(buf []byte, spec *MessageSpec, args []Arg) ([]byte, []int, error) {
	if len(args) != len(spec.Args) {
		return nil, nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, spec.Name, len(spec.Args), len(args))
	}
	start := len(buf)
	var fds []int
	for i, as := range spec.Args {
		a := args[i]
		if a.Kind != as.Kind {
			return nil, nil, fmt.Errorf("%w: %s.%s is %s, got %s", ErrArgKind, spec.Name, as.Name, as.Kind, a.Kind)
		}
		switch as.Kind {
		case KindInt:
			buf = byteOrder.AppendUint32(buf, uint32(a.Int))
		case KindUint:
			buf = byteOrder.AppendUint32(buf, a.Uint)
		case KindFixed:
			buf = byteOrder.AppendUint32(buf, uint32(a.Fixed))
		case KindString:
			if a.Null {
				if !as.Nullable {
					return nil, nil, fmt.Errorf("%w: %s.%s", ErrNullArg, spec.Name, as.Name)
				}
				buf = byteOrder.AppendUint32(buf, 0)
				continue
			}
			var err error
			if buf, err = appendString(buf, a.String); err != nil {
				return nil, nil, fmt.Errorf("%w: %s.%s", err, spec.Name, as.Name)
			}
		case KindObject:
			if a.Object == 0 && !as.Nullable {
				return nil, nil, fmt.Errorf("%w: %s.%s", ErrNullArg, spec.Name, as.Name)
			}
			buf = byteOrder.AppendUint32(buf, uint32(a.Object))
		case KindNewID:
			if a.Object == 0 {
				return nil, nil, fmt.Errorf("%w: %s.%s has no id", ErrNullArg, spec.Name, as.Name)
			}
			if as.Dynamic() {
				if a.Interface == "" {
					return nil, nil, fmt.Errorf("%w: %s.%s needs an interface name", ErrArgKind, spec.Name, as.Name)
				}
				var err error
				if buf, err = appendString(buf, a.Interface); err != nil {
					return nil, nil, fmt.Errorf("%w: %s.%s", err, spec.Name, as.Name)
				}
				buf = byteOrder.AppendUint32(buf, a.Version)
			}
			buf = byteOrder.AppendUint32(buf, uint32(a.Object))
		case KindArray:
			buf = byteOrder.AppendUint32(buf, uint32(len(a.Array)))
			buf = append(buf, a.Array...)
			buf = appendPadding(buf, len(a.Array))
		case KindFD:
			fds = append(fds, a.FD)
		default:
			return nil, nil, fmt.Errorf("%w: %s.%s has %s", ErrArgKind, spec.Name, as.Name, as.Kind)
		}
		if HeaderSize+len(buf)-start > MaxMessageSize {
			return nil, nil, fmt.Errorf("%w: %s", ErrMessageTooLarge, spec.Name)
		}
	}
	return buf, fds, nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, ErrStringNUL
	}
	n := len(s) + 1
	if HeaderSize+4+n > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	buf = byteOrder.AppendUint32(buf, uint32(n))
	buf = append(buf, s...)
	buf = append(buf, 0)
	return appendPadding(buf, n), nil
}

func appendPadding(buf []byte, n int) []byte {
	for pad := padded(n) - n; pad > 0; pad-- {
		buf = append(buf, 0)
	}
	return buf
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// UnmarshalArgs decodes body according to spec, consuming file descriptors
// from fds in order. It returns the arguments and how many fds were used.
func UnmarshalArgs(spec *MessageSpec, body []byte, fds []int) ([]Arg, int, error) {
	d := decoder{body: body}
	args := make([]Arg, 0, len(spec.Args))
	used := 0
	for _, as := range spec.Args {
		a := Arg{Kind: as.Kind}
		var err error
		switch as.Kind {
		case KindInt:
			var v uint32
			v, err = d.uint32()
			a.Int = int32(v)
		case KindUint:
			a.Uint, err = d.uint32()
		case KindFixed:
			var v uint32
			v, err = d.uint32()
			a.Fixed = Fixed(int32(v))
		case KindString:
			a.String, a.Null, err = d.string()
			if err == nil && a.Null && !as.Nullable {
				err = ErrNullArg
			}
		case KindObject:
			var v uint32
			v, err = d.uint32()
			a.Object = ObjectID(v)
			if err == nil && v == 0 && !as.Nullable {
				err = ErrNullArg
			}
		case KindNewID:
			if as.Dynamic() {
				var null bool
				if a.Interface, null, err = d.string(); err == nil && null {
					err = ErrNullArg
				}
				if err == nil {
					a.Version, err = d.uint32()
				}
			}
			if err == nil {
				var v uint32
				v, err = d.uint32()
				a.Object = ObjectID(v)
				if err == nil && v == 0 {
					err = ErrNullArg
				}
			}
		case KindArray:
			a.Array, err = d.array()
		case KindFD:
			if used >= len(fds) {
				err = ErrMissingFD
				break
			}
			a.FD = fds[used]
			used++
		default:
			err = ErrArgKind
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s.%s", err, spec.Name, as.Name)
		}
		args = append(args, a)
	}
	if d.off != len(body) {
		return nil, 0, fmt.Errorf("%w: %s has %d extra bytes", ErrTrailingBytes, spec.Name, len(body)-d.off)
	}
	return args, used, nil
}

type decoder struct {
	body []byte
	off  int
}

func (d *decoder) uint32() (uint32, error) {
	if len(d.body)-d.off < 4 {
		return 0, ErrTruncated
	}
	v := byteOrder.Uint32(d.body[d.off:])
	d.off += 4
	return v, nil
}

// payload reads a length-prefixed, padded byte span.
func (d *decoder) payload() ([]byte, error) {
	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	total := uint64(n) + uint64((4-n%4)%4)
	if total > uint64(len(d.body)-d.off) {
		return nil, ErrBadLength
	}
	b := d.body[d.off : d.off+int(n)]
	d.off += int(total)
	return b, nil
}

func (d *decoder) string() (string, bool, error) {
	b, err := d.payload()
	if err != nil {
		return "", false, err
	}
	if len(b) == 0 {
		return "", true, nil
	}
	if b[len(b)-1] != 0 {
		return "", false, ErrUnterminated
	}
	if bytes.IndexByte(b[:len(b)-1], 0) >= 0 {
		return "", false, ErrStringNUL
	}
	return string(b[:len(b)-1]), false, nil
}

func (d *decoder) array() ([]byte, error) {
	b, err := d.payload()
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
