package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/wlscanner/x/protocol"
)

func parseFile(t *testing.T, path string) *protocol.Protocol {
	t.Helper()
	p, err := New(zerolog.Nop()).Parse(context.Background(), path)
	require.NoError(t, err)
	return p
}

func TestParseXMLWidget(t *testing.T) {
	t.Parallel()

	p := parseFile(t, filepath.Join("testdata", "widget.xml"))
	assert.Equal(t, "widget", p.Name)
	assert.Equal(t, filepath.Join("testdata", "widget.xml"), p.Document)
	assert.True(t, strings.HasPrefix(p.Copyright, "Copyright © 2025"))
	assert.Equal(t, "toy protocol exercising every argument kind", p.Description.Summary)
	require.Len(t, p.Interfaces, 2)

	factory := p.Interface("widget_factory")
	require.NotNil(t, factory)
	assert.Equal(t, uint32(2), factory.Version)
	require.Len(t, factory.Requests, 3)
	for i, name := range []string{"create", "create_named", "get_extension"} {
		assert.Equal(t, name, factory.Requests[i].Name)
		assert.Equal(t, uint16(i), factory.Requests[i].Opcode)
	}
	assert.Equal(t, uint32(1), factory.Requests[0].Since, "absent since defaults to 1")
	assert.Equal(t, uint32(2), factory.Requests[1].Since)

	named := factory.Requests[1]
	require.Len(t, named.Args, 2)
	assert.Equal(t, protocol.ArgNewID, named.Args[0].Type)
	assert.Equal(t, "widget", named.Args[0].Interface)
	assert.Equal(t, "initial title", named.Args[1].Summary)

	dyn := factory.Requests[2].Args[1]
	assert.Equal(t, protocol.ArgNewID, dyn.Type)
	assert.Empty(t, dyn.Interface)

	caps := factory.Enum("capability")
	require.NotNil(t, caps)
	assert.True(t, caps.Bitfield)
	require.Len(t, caps.Entries, 4)
	assert.Equal(t, uint32(4), caps.Entries[3].Value, "hex values")
	assert.Equal(t, uint32(2), caps.Entries[3].Since)

	widget := p.Interface("widget")
	require.NotNil(t, widget)
	destroy := widget.Destructor(protocol.Request)
	require.NotNil(t, destroy)
	assert.Equal(t, "destroy", destroy.Name)
	assert.Nil(t, widget.Destructor(protocol.Event))
	assert.True(t, widget.Message(protocol.Request, "set_title").Args[0].Nullable)

	attach := widget.Message(protocol.Request, "attach")
	require.NotNil(t, attach)
	var types []protocol.ArgType
	for _, a := range attach.Args {
		types = append(types, a.Type)
	}
	assert.Equal(t, []protocol.ArgType{protocol.ArgFD, protocol.ArgInt, protocol.ArgInt}, types, "argument order is kept")

	assert.Equal(t, "A rectangle with a title.\n\nDestroying the widget is final; its id is released by the server.", widget.Description.Text)
}

func TestXMLAndYAMLAgree(t *testing.T) {
	t.Parallel()

	fromXML := parseFile(t, filepath.Join("testdata", "widget.xml"))
	fromYAML := parseFile(t, filepath.Join("testdata", "widget.yaml"))
	fromXML.Document, fromYAML.Document = "", ""
	assert.Equal(t, fromXML, fromYAML)
}

func TestParseXMLErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want error
		path string
		line int
	}{
		{
			name: "unknown element",
			doc: `<protocol name="p">
<interface name="a" version="1">
  <request name="r">
    <argument name="x" type="int"/>
  </request>
</interface>
</protocol>`,
			want: ErrUnknownElement,
			path: "protocol[p]/interface[a]/request[r]/argument",
			line: 4,
		},
		{
			name: "unknown attribute",
			doc: `<protocol name="p">
<interface name="a" version="1" colour="red"/>
</protocol>`,
			want: ErrUnknownAttribute,
			path: "protocol[p]/interface",
			line: 2,
		},
		{
			name: "missing version",
			doc:  `<protocol name="p"><interface name="a"/></protocol>`,
			want: ErrMissingAttribute,
			path: "protocol[p]/interface",
		},
		{
			name: "bad arg type",
			doc:  `<protocol name="p"><interface name="a" version="1"><event name="e"><arg name="x" type="double"/></event></interface></protocol>`,
			want: ErrBadValue,
			path: "protocol[p]/interface[a]/event[e]/arg[x]",
		},
		{
			name: "bad since",
			doc:  `<protocol name="p"><interface name="a" version="1"><event name="e" since="two"/></interface></protocol>`,
			want: ErrBadNumber,
			path: "protocol[p]/interface[a]/event[e]",
		},
		{
			name: "bad entry value",
			doc:  `<protocol name="p"><interface name="a" version="1"><enum name="e"><entry name="x" value="0xZZ"/></enum></interface></protocol>`,
			want: ErrBadNumber,
			path: "protocol[p]/interface[a]/enum[e]/entry[x]",
		},
		{
			name: "bad message type",
			doc:  `<protocol name="p"><interface name="a" version="1"><request name="r" type="constructor"/></interface></protocol>`,
			want: ErrBadValue,
			path: "protocol[p]/interface[a]/request[r]",
		},
		{
			name: "two descriptions",
			doc:  `<protocol name="p"><interface name="a" version="1"><description summary="x"/><description summary="y"/></interface></protocol>`,
			want: ErrDuplicateElement,
			path: "protocol[p]/interface[a]/description",
		},
		{
			name: "stray text",
			doc:  `<protocol name="p"><interface name="a" version="1">hello</interface></protocol>`,
			want: ErrUnexpectedText,
			path: "protocol[p]/interface[a]",
		},
		{
			name: "no interfaces",
			doc:  `<protocol name="p"><copyright>c</copyright></protocol>`,
			want: ErrNoInterfaces,
			path: "protocol[p]",
		},
		{
			name: "wrong root",
			doc:  `<interface name="a" version="1"/>`,
			want: ErrUnknownElement,
			path: "interface",
		},
		{
			name: "empty",
			doc:  `<?xml version="1.0"?>`,
			want: ErrEmptyDocument,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseXML("test.xml", strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "test.xml", pe.Document)
			assert.Equal(t, tc.path, pe.Path)
			if tc.line > 0 {
				assert.Equal(t, tc.line, pe.Line)
			}
		})
	}
}

func TestParseXMLTruncated(t *testing.T) {
	t.Parallel()

	_, err := ParseXML("cut.xml", strings.NewReader(`<protocol name="p"><interface name="a" version="1">`))
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "protocol[p]/interface[a]", pe.Path)
}

func TestParseYAMLErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want error
		path string
		line int
	}{
		{
			name: "missing interface version",
			doc:  "name: p\ninterfaces:\n  - name: a\n",
			want: ErrMissingAttribute,
			path: "protocol[p]/interface[a]",
			line: 3,
		},
		{
			name: "bad arg type",
			doc: `name: p
interfaces:
  - name: a
    version: 1
    events:
      - name: e
        args:
          - name: x
            type: double
`,
			want: ErrBadValue,
			path: "protocol[p]/interface[a]/event[e]/arg[x]",
			line: 9,
		},
		{
			name: "missing entry value",
			doc: `name: p
interfaces:
  - name: a
    version: 1
    enums:
      - name: e
        entries:
          - name: x
`,
			want: ErrMissingAttribute,
			path: "protocol[p]/interface[a]/enum[e]/entry[x]",
			line: 8,
		},
		{
			name: "explicit zero since",
			doc:  "name: p\ninterfaces:\n  - name: a\n    version: 1\n    requests:\n      - name: r\n        since: 0\n",
			want: ErrBadNumber,
			path: "protocol[p]/interface[a]/request[r]",
		},
		{
			name: "no interfaces",
			doc:  "name: p\n",
			want: ErrNoInterfaces,
			path: "protocol[p]",
		},
		{
			name: "empty",
			doc:  "",
			want: ErrEmptyDocument,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseYAML("test.yaml", strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.path, pe.Path)
			if tc.line > 0 {
				assert.Equal(t, tc.line, pe.Line)
			}
		})
	}
}

func TestParseYAMLUnknownKey(t *testing.T) {
	t.Parallel()

	doc := "name: p\ninterfaces:\n  - name: a\n    version: 1\n    colour: red\n"
	_, err := ParseYAML("test.yaml", strings.NewReader(doc))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 5, pe.Line)
	assert.Contains(t, err.Error(), "colour")
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proto.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := New(zerolog.Nop()).Parse(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(zerolog.Nop()).Parse(ctx, filepath.Join("testdata", "widget.xml"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	in := "\n    first line\n      second line\n\n\n    next paragraph\n  "
	assert.Equal(t, "first line\nsecond line\n\nnext paragraph", normalizeText(in))
	assert.Empty(t, normalizeText("  \n \n"))
}

func TestParseUint32(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]uint32{"0": 0, "42": 42, "0x10": 16, "0XfF": 255, "4294967295": 4294967295, "010": 10} {
		got, err := parseUint32(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "-1", "4294967296", "0x", "1.5"} {
		_, err := parseUint32(in)
		assert.ErrorIs(t, err, ErrBadNumber, in)
	}
}
