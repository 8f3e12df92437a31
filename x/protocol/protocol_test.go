package protocol_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/wlscanner/examples/widget"
	"github.com/compose-network/wlscanner/x/protocol"
	"github.com/compose-network/wlscanner/x/scanner"
	"github.com/compose-network/wlscanner/x/wire"
)

func TestDescriptorsMatchGeneratedTables(t *testing.T) {
	t.Parallel()

	f, err := os.Open(filepath.Join("..", "..", "examples", "widget", "widget.xml"))
	require.NoError(t, err)
	defer f.Close()
	p, err := scanner.ParseXML("widget.xml", f)
	require.NoError(t, err)

	assert.Equal(t, widget.Interfaces, p.Descriptors())
}

func TestEnumRef(t *testing.T) {
	t.Parallel()

	for enum, want := range map[string][2]string{
		"state":               {"", "state"},
		"wl_output.transform": {"wl_output", "transform"},
		"a.b.c":               {"a.b", "c"},
	} {
		iface, name := (&protocol.Arg{Enum: enum}).EnumRef()
		assert.Equal(t, want, [2]string{iface, name}, enum)
	}
}

func TestArgTypeKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, wire.KindNewID, protocol.ArgNewID.Kind())
	assert.Equal(t, wire.KindFD, protocol.ArgFD.Kind())
	assert.Equal(t, wire.Kind(0), protocol.ArgType("float").Kind())

	_, err := protocol.ParseArgType("float")
	require.Error(t, err)
	typ, err := protocol.ParseArgType("fixed")
	require.NoError(t, err)
	assert.Equal(t, protocol.ArgFixed, typ)
}

func TestLookups(t *testing.T) {
	t.Parallel()

	destroy := &protocol.Message{Name: "destroy", Destructor: true}
	iface := &protocol.Interface{
		Name:     "thing",
		Requests: []*protocol.Message{{Name: "poke"}, destroy},
		Events:   []*protocol.Message{{Name: "poke"}},
		Enums:    []*protocol.Enum{{Name: "kind"}},
	}
	p := &protocol.Protocol{Interfaces: []*protocol.Interface{iface}}

	assert.Same(t, iface, p.Interface("thing"))
	assert.Nil(t, p.Interface("other"))
	assert.Same(t, destroy, iface.Message(protocol.Request, "destroy"))
	assert.Nil(t, iface.Message(protocol.Event, "destroy"))
	assert.Same(t, destroy, iface.Destructor(protocol.Request))
	assert.Nil(t, iface.Destructor(protocol.Event))
	assert.NotNil(t, iface.Enum("kind"))
	assert.Equal(t, "event", protocol.Event.String())
}
