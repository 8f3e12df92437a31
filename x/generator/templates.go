package generator

import (
	"strconv"
	"text/template"
)

const header = "// Code generated by wlscanner. DO NOT EDIT."

var funcs = template.FuncMap{
	"quote": strconv.Quote,
}

const sharedTemplate = `{{.Header}}
// Source: {{.Name}}

{{range .Doc}}//{{if .}} {{.}}{{end}}
{{end -}}
package {{.Package}}

import (
{{- if .HasEnums}}
	"fmt"
{{- end}}
{{- if .HasBitfield}}
	"strings"
{{- end}}

	"{{.Runtime}}/wire"
)

// Interfaces lists every interface of the {{.Name}} protocol.
var Interfaces = []*wire.Interface{
{{- range .Interfaces}}
	{{.Var}},
{{- end}}
}
{{range $iface := .Interfaces}}
// {{.Var}} describes {{.Name}} at version {{.Version}}.{{if .Summary}}
// {{.Summary}}.{{end}}
var {{.Var}} = &wire.Interface{
	Name: {{quote .Name}},
	Version: {{.Version}},
{{- if .Requests}}
	Requests: []wire.MessageSpec{
{{- range .Requests}}
{{template "spec" .}}
{{- end}}
	},
{{- end}}
{{- if .Events}}
	Events: []wire.MessageSpec{
{{- range .Events}}
{{template "spec" .}}
{{- end}}
	},
{{- end}}
}
{{if or .Requests .Events}}
// Opcodes and minimum versions of the {{.Name}} messages.
const (
{{- range .Requests}}
	{{.OpcodeConst}} uint16 = {{.Opcode}}
	{{.SinceConst}} uint32 = {{.Since}}
{{- end}}
{{- range .Events}}
	{{.OpcodeConst}} uint16 = {{.Opcode}}
	{{.SinceConst}} uint32 = {{.Since}}
{{- end}}
)
{{end}}
{{- range .Enums}}
// {{.GoName}} is the {{.Name}} enum of {{$iface.Name}}{{if .Summary}}: {{.Summary}}{{end}}.
type {{.GoName}} uint32

const (
{{- $enum := .}}
{{- range .Entries}}
{{- if .Summary}}
	// {{.Summary}}
{{- end}}
	{{.GoName}} {{$enum.GoName}} = {{.Value}}
{{- end}}
)

func (e {{.GoName}}) String() string {
{{- if .Bitfield}}
	return formatBits(uint32(e), []uint32{ {{- range $i, $e := .Unique}}{{if $i}}, {{end}}{{$e.Value}}{{end -}} }, []string{ {{- range $i, $e := .Unique}}{{if $i}}, {{end}}{{quote $e.Name}}{{end -}} })
{{- else}}
	switch e {
{{- range .Unique}}
	case {{.GoName}}:
		return {{quote .Name}}
{{- end}}
	}
	return fmt.Sprintf("{{.GoName}}(%d)", uint32(e))
{{- end}}
}
{{end}}
{{- end}}
{{- if .HasBitfield}}
// formatBits renders a bitfield as names joined by "|". Unknown bits are
// printed in hex.
func formatBits(v uint32, values []uint32, names []string) string {
	var parts []string
	rest := v
	for i, bit := range values {
		if bit == 0 {
			if v == 0 {
				return names[i]
			}
			continue
		}
		if rest&bit == bit {
			parts = append(parts, names[i])
			rest &^= bit
		}
	}
	if rest != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("0x%x", rest))
	}
	return strings.Join(parts, "|")
}
{{- end}}

{{define "spec"}}		{Name: {{quote .Name}}, Since: {{.Since}}{{if .Destructor}}, Destructor: true{{end}}
{{- if .Args}}, Args: []wire.ArgSpec{
{{- range .Args}}
			{Name: {{quote .Name}}, Kind: {{.Kind}}{{if .Nullable}}, Nullable: true{{end}}{{if .Interface}}, Interface: {{quote .Interface}}{{end}}},
{{- end}}
		}},
{{- else}}},
{{- end}}
{{- end}}
`

const roleTemplate = `{{.Header}}
// Source: {{.Protocol}}

// Package {{.Package}} holds the {{.Role}} side of the {{.Protocol}} protocol.
package {{.Package}}

import (
	"fmt"

	"{{.Runtime}}/session"
	"{{.Runtime}}/wire"

	"{{.SharedPath}}"
)
{{range .Interfaces}}
{{- $iface := .}}
// {{.GoName}} is the {{$.Role}} {{.Noun}} of a {{.Name}} object.{{if .Summary}}
// {{.Summary}}.{{end}}
type {{.GoName}} struct {
	obj *session.Object
{{- if .Incoming}}
	{{.Field}} {{.GoName}}{{.Callbacks}}
{{- end}}
}
{{if .Incoming}}
// {{.GoName}}{{.Callbacks}} receives the {{.InDir}}s of {{.Name}}. A non-nil
// error is returned from Session.Dispatch.
type {{.GoName}}{{.Callbacks}} interface {
{{- range $i, $c := .Incoming}}
{{- if $i}}
{{end}}
{{- range .Doc}}
	// {{.}}
{{- end}}
	{{.GoName}}({{.Params}}) error
{{- end}}
}
{{end}}
func as{{.GoName}}(obj *session.Object) *{{.GoName}} {
	if obj == nil {
		return nil
	}
	if h, ok := obj.Handler().(*{{.GoName}}); ok {
		return h
	}
	h := &{{.GoName}}{obj: obj}
	obj.SetHandler(h)
	return h
}

// {{.GoName}}FromObject wraps obj, which must be bound to {{.Name}}.
func {{.GoName}}FromObject(obj *session.Object) (*{{.GoName}}, error) {
	if obj == nil || obj.Interface().Name != {{$.Shared}}.{{.Var}}.Name {
		return nil, fmt.Errorf("%w: want {{.Name}}", session.ErrWrongInterface)
	}
	return as{{.GoName}}(obj), nil
}

// Bind{{.GoName}} binds a well-known {{.Name}} object at id.
func Bind{{.GoName}}(s *session.Session, id wire.ObjectID, version uint32) (*{{.GoName}}, error) {
	obj, err := s.Bind(id, {{$.Shared}}.{{.Var}}, version)
	if err != nil {
		return nil, err
	}
	return as{{.GoName}}(obj), nil
}

// Object returns the session object, or nil for a nil {{.Noun}}.
func (o *{{.GoName}}) Object() *session.Object {
	if o == nil {
		return nil
	}
	return o.obj
}

// Version returns the negotiated version.
func (o *{{.GoName}}) Version() uint32 {
	if o == nil {
		return 0
	}
	return o.obj.Version()
}
{{if .Incoming}}
// {{.Setter}} installs the callbacks for incoming {{.InDir}}s.
func (o *{{.GoName}}) {{.Setter}}({{.Field}} {{.GoName}}{{.Callbacks}}) {
	o.{{.Field}} = {{.Field}}
}
{{end}}
{{- range .Outgoing}}
{{- range .Doc}}
//{{if .}} {{.}}{{end}}
{{- end}}
func (o *{{$iface.GoName}}) {{.GoName}}({{.Params}}) {{.Returns}} {
{{- if .Result}}
	objs, err := session.Send(o.Object(), {{.Opcode}}{{if .Args}}, {{.Args}}{{end}})
	if err != nil {
		return nil, err
	}
	return {{.Result}}, nil
{{- else}}
	_, err := session.Send(o.Object(), {{.Opcode}}{{if .Args}}, {{.Args}}{{end}})
	return err
{{- end}}
}
{{end}}
// Dispatch routes an incoming {{.InDir}} to the installed callbacks. It
// implements session.Handler.
func (o *{{.GoName}}) Dispatch(in *session.Incoming) error {
{{- if .Incoming}}
	switch in.Opcode {
{{- range .Incoming}}
	case {{.Opcode}}:
{{- range .Pre}}
		{{.}}
{{- end}}
		if o.{{$iface.Field}} == nil {
			return nil
		}
		return o.{{$iface.Field}}.{{.GoName}}({{.Call}})
{{- end}}
	}
{{- end}}
	return fmt.Errorf("{{.Name}}: unknown {{.InDir}} opcode %d", in.Opcode)
}
{{end}}
func optString(s *string) wire.Arg {
	if s == nil {
		return wire.NullString()
	}
	return wire.String(*s)
}

func stringPtr(a wire.Arg) *string {
	if a.Null {
		return nil
	}
	s := a.String
	return &s
}
`

var (
	sharedTmpl = template.Must(template.New("shared").Funcs(funcs).Parse(sharedTemplate))
	roleTmpl   = template.Must(template.New("role").Funcs(funcs).Parse(roleTemplate))
)
