package scanner

import (
	"fmt"
	"strconv"
	"strings"
)

// normalizeText trims every line, drops leading and trailing blank lines and
// collapses runs of blank lines into one paragraph break.
func normalizeText(s string) string {
	var (
		out   []string
		blank bool
	)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// parseUint32 accepts decimal and 0x-prefixed hexadecimal values.
func parseUint32(s string) (uint32, error) {
	digits, base := strings.TrimSpace(s), 10
	if rest, ok := strings.CutPrefix(digits, "0x"); ok {
		digits, base = rest, 16
	} else if rest, ok := strings.CutPrefix(digits, "0X"); ok {
		digits, base = rest, 16
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return uint32(v), nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q is not a boolean", ErrBadValue, s)
	}
}

// path renders an element path segment list.
type path []string

func (p path) push(kind, name string) path {
	seg := kind
	if name != "" {
		seg = fmt.Sprintf("%s[%s]", kind, name)
	}
	out := make(path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

func (p path) String() string {
	return strings.Join(p, "/")
}
