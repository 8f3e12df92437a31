package generator

import (
	"go/token"
	"strings"
	"unicode"
)

// initialisms are rendered in upper case inside exported names.
var initialisms = map[string]string{
	"id":   "ID",
	"fd":   "FD",
	"url":  "URL",
	"uri":  "URI",
	"dpms": "DPMS",
}

// exported turns a snake_case protocol name into an exported Go name:
// widget_factory becomes WidgetFactory, get_id becomes GetID.
func exported(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		if up, ok := initialisms[part]; ok {
			b.WriteString(up)
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// unexported is exported with a lower-case first word. Go keywords and names
// the generated code uses for itself are suffixed with an underscore.
func unexported(name string, reserved map[string]bool) string {
	var b strings.Builder
	first := true
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		if first {
			b.WriteString(strings.ToLower(part))
			first = false
			continue
		}
		if up, ok := initialisms[part]; ok {
			b.WriteString(up)
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	out := b.String()
	if out == "" {
		out = "arg"
	}
	if token.IsKeyword(out) || reserved[out] {
		out += "_"
	}
	return out
}

// packageName derives a Go package name from a protocol name:
// lower case letters and digits only, never shadowing an import.
func packageName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "p" + out
	}
	if token.IsKeyword(out) || imported[out] {
		out += "proto"
	}
	return out
}

// imported are the package names generated files import.
var imported = map[string]bool{"fmt": true, "strings": true, "wire": true, "session": true}

// localNames are identifiers the generated method bodies declare or
// reference; parameters must not shadow them.
func localNames(shared string) map[string]bool {
	m := map[string]bool{
		"o": true, "in": true, "objs": true, "err": true,
		"fmt": true, "wire": true, "session": true,
		"string": true, "int": true, "int32": true, "uint32": true, "byte": true,
		"error": true, "nil": true, "len": true, "true": true, "false": true,
	}
	m[shared] = true
	return m
}

// sentence renders a summary as a sentence fragment for doc comments.
func sentence(s string) string {
	s = strings.TrimSpace(strings.Join(strings.Fields(s), " "))
	return strings.TrimSuffix(s, ".")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
