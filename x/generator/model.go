package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/compose-network/wlscanner/x/protocol"
)

// The view types carry everything the templates print. All naming and type
// mapping decisions are made here so the templates stay declarative.

type protoView struct {
	Header      string
	Runtime     string
	Name        string
	Package     string
	Import      string
	Doc         []string
	Interfaces  []*ifaceView
	HasEnums    bool
	HasBitfield bool
}

type ifaceView struct {
	Name     string
	GoName   string
	Var      string
	Version  uint32
	Summary  string
	Requests []*msgView
	Events   []*msgView
	Enums    []*enumView
}

type msgView struct {
	Name        string
	GoName      string
	Since       uint32
	Destructor  bool
	Summary     string
	OpcodeConst string
	Opcode      uint16
	SinceConst  string
	Args        []argView
	src         *protocol.Message
}

type argView struct {
	Name      string
	Kind      string
	Nullable  bool
	Interface string
}

type enumView struct {
	GoName   string
	Name     string
	Summary  string
	Bitfield bool
	Entries  []entryView
	// Unique holds the first entry of every distinct value, for String.
	Unique []entryView
}

type entryView struct {
	GoName  string
	Name    string
	Value   string
	Summary string
}

type roleView struct {
	Header     string
	Runtime    string
	Role       string
	Package    string
	Shared     string
	SharedPath string
	Protocol   string
	Interfaces []*roleIface
}

type roleIface struct {
	*ifaceView
	// Callbacks is the suffix of the callback interface, Listener or Handler.
	Callbacks string
	Setter    string
	Field     string
	Noun      string
	InDir     string
	Outgoing  []*method
	Incoming  []*callback
}

type method struct {
	GoName  string
	Name    string
	Doc     []string
	Params  string
	Args    string
	Opcode  string
	Returns string
	Result  string
}

type callback struct {
	GoName string
	Name   string
	Doc    []string
	Opcode string
	Params string
	Pre    []string
	Call   string
}

var kindNames = map[protocol.ArgType]string{
	protocol.ArgInt:    "wire.KindInt",
	protocol.ArgUint:   "wire.KindUint",
	protocol.ArgFixed:  "wire.KindFixed",
	protocol.ArgString: "wire.KindString",
	protocol.ArgObject: "wire.KindObject",
	protocol.ArgNewID:  "wire.KindNewID",
	protocol.ArgArray:  "wire.KindArray",
	protocol.ArgFD:     "wire.KindFD",
}

// builder turns one protocol into views and checks the generated top-level
// names for collisions.
type builder struct {
	cfg      Config
	proto    *protocol.Protocol
	pkg      string
	ifaces   map[string]*ifaceView
	enums    map[string]*enumView
	reserved map[string]bool
}

func newBuilder(cfg Config, p *protocol.Protocol) *builder {
	return &builder{
		cfg:    cfg,
		proto:  p,
		pkg:    packageName(p.Name),
		ifaces: make(map[string]*ifaceView),
		enums:  make(map[string]*enumView),
	}
}

func (b *builder) shared() (*protoView, error) {
	v := &protoView{
		Header:  header,
		Runtime: b.cfg.RuntimePath,
		Name:    b.proto.Name,
		Package: b.pkg,
		Import:  b.importPath(""),
	}
	v.Doc = append(v.Doc, fmt.Sprintf("Package %s holds the wire descriptors of the %s protocol.", b.pkg, b.proto.Name))
	if s := sentence(b.proto.Description.Summary); s != "" {
		v.Doc = append(v.Doc, "", capitalize(s)+".")
	}

	names := newNameSet()
	names.add("Interfaces", "descriptor list")
	names.add("formatBits", "helper")
	for _, iface := range b.proto.Interfaces {
		iv := &ifaceView{
			Name:    iface.Name,
			GoName:  exported(iface.Name),
			Version: iface.Version,
			Summary: capitalize(sentence(iface.Description.Summary)),
		}
		iv.Var = iv.GoName + "Interface"
		names.add(iv.Var, "descriptor of "+iface.Name)
		iv.Requests = b.messages(iv, iface.Requests, "Request", names)
		iv.Events = b.messages(iv, iface.Events, "Event", names)

		for _, e := range iface.Enums {
			ev := &enumView{
				GoName:   iv.GoName + exported(e.Name),
				Name:     e.Name,
				Summary:  sentence(e.Description.Summary),
				Bitfield: e.Bitfield,
			}
			names.add(ev.GoName, "enum "+iface.Name+"."+e.Name)
			seen := make(map[uint32]bool)
			for _, entry := range e.Entries {
				en := entryView{
					GoName:  ev.GoName + exported(entry.Name),
					Name:    entry.Name,
					Value:   formatValue(entry.Value, e.Bitfield),
					Summary: sentence(entry.Summary),
				}
				names.add(en.GoName, "entry "+iface.Name+"."+e.Name+"."+entry.Name)
				ev.Entries = append(ev.Entries, en)
				if !seen[entry.Value] {
					seen[entry.Value] = true
					ev.Unique = append(ev.Unique, en)
				}
			}
			iv.Enums = append(iv.Enums, ev)
			b.enums[iface.Name+"."+e.Name] = ev
			v.HasEnums = true
			v.HasBitfield = v.HasBitfield || e.Bitfield
		}

		b.ifaces[iface.Name] = iv
		v.Interfaces = append(v.Interfaces, iv)
	}
	return v, names.err()
}

func (b *builder) messages(iv *ifaceView, msgs []*protocol.Message, dir string, names *nameSet) []*msgView {
	out := make([]*msgView, 0, len(msgs))
	for i, m := range msgs {
		mv := &msgView{
			Name:       m.Name,
			GoName:     exported(m.Name),
			Since:      m.Since,
			Destructor: m.Destructor,
			Summary:    sentence(m.Description.Summary),
			Opcode:     uint16(i),
			src:        m,
		}
		mv.OpcodeConst = iv.GoName + dir + mv.GoName + "Opcode"
		mv.SinceConst = iv.GoName + dir + mv.GoName + "SinceVersion"
		names.add(mv.OpcodeConst, dir+" "+iv.Name+"."+m.Name)
		names.add(mv.SinceConst, dir+" "+iv.Name+"."+m.Name)
		for _, a := range m.Args {
			mv.Args = append(mv.Args, argView{
				Name:      a.Name,
				Kind:      kindNames[a.Type],
				Nullable:  a.Nullable,
				Interface: a.Interface,
			})
		}
		out = append(out, mv)
	}
	return out
}

func formatValue(v uint32, hex bool) string {
	if hex && v > 9 {
		return fmt.Sprintf("0x%x", v)
	}
	return strconv.FormatUint(uint64(v), 10)
}

// role builds the view of one role package. shared must have run first.
func (b *builder) role(r Role, sv *protoView) (*roleView, error) {
	v := &roleView{
		Header:     header,
		Runtime:    b.cfg.RuntimePath,
		Role:       string(r),
		Package:    string(r),
		Shared:     b.pkg,
		SharedPath: sv.Import,
		Protocol:   b.proto.Name,
	}
	names := newNameSet()
	b.reserved = localNames(b.pkg)
	for _, n := range []string{"optString", "stringPtr"} {
		names.add(n, "helper")
		b.reserved[n] = true
	}
	for _, iv := range sv.Interfaces {
		b.reserved["as"+iv.GoName] = true
	}

	for _, iv := range sv.Interfaces {
		ri := &roleIface{ifaceView: iv}
		out, in := iv.Requests, iv.Events
		if r == RoleClient {
			ri.Callbacks, ri.Setter, ri.Field, ri.Noun, ri.InDir = "Listener", "SetListener", "listener", "handle", "event"
		} else {
			ri.Callbacks, ri.Setter, ri.Field, ri.Noun, ri.InDir = "Handler", "SetHandler", "handler", "resource", "request"
			out, in = iv.Events, iv.Requests
		}
		names.add(iv.GoName, r.noun()+" of "+iv.Name)
		if len(in) > 0 {
			names.add(iv.GoName+ri.Callbacks, "callbacks of "+iv.Name)
		}
		names.add("as"+iv.GoName, "wrapper of "+iv.Name)
		names.add(iv.GoName+"FromObject", "conversion of "+iv.Name)
		names.add("Bind"+iv.GoName, "binding of "+iv.Name)

		callbacks := newNameSet()
		for _, mv := range in {
			c := b.callback(ri, mv)
			callbacks.add(c.GoName, "message "+mv.Name)
			ri.Incoming = append(ri.Incoming, c)
		}
		if err := callbacks.err(); err != nil {
			return nil, fmt.Errorf("%s: %w", iv.Name, err)
		}
		accessors := map[string]bool{"Object": true, "Version": true, "Dispatch": true}
		if len(ri.Incoming) > 0 {
			accessors[ri.Setter] = true
		}
		methods := newNameSet()
		for _, mv := range out {
			m := b.method(ri, mv, r)
			// Messages named like an accessor keep the accessor's name free.
			if accessors[m.GoName] {
				m.GoName += "Msg"
				m.Doc[0] = m.GoName + strings.TrimPrefix(m.Doc[0], mv.GoName)
			}
			methods.add(m.GoName, "message "+mv.Name)
			ri.Outgoing = append(ri.Outgoing, m)
		}
		if err := methods.err(); err != nil {
			return nil, fmt.Errorf("%s: %w", iv.Name, err)
		}
		v.Interfaces = append(v.Interfaces, ri)
	}
	return v, names.err()
}

func (r Role) noun() string {
	if r == RoleServer {
		return "resource"
	}
	return "handle"
}

// typedHandle returns the role-local type of objects of iface when it is
// declared in the same document.
func (b *builder) typedHandle(iface string) (string, bool) {
	iv, ok := b.ifaces[iface]
	if !ok {
		return "", false
	}
	return iv.GoName, true
}

// enumType returns the shared enum type an argument refers to, if it is
// declared in the same document.
func (b *builder) enumType(owner *ifaceView, a *protocol.Arg) (string, bool) {
	if a.Enum == "" {
		return "", false
	}
	iface, name := a.EnumRef()
	if iface == "" {
		iface = owner.Name
	}
	ev, ok := b.enums[iface+"."+name]
	if !ok {
		return "", false
	}
	return b.pkg + "." + ev.GoName, true
}

func (b *builder) method(ri *roleIface, mv *msgView, r Role) *method {
	reserved := b.reserved
	m := &method{
		GoName:  mv.GoName,
		Name:    mv.Name,
		Opcode:  b.pkg + "." + mv.OpcodeConst,
		Returns: "error",
	}
	dir := "request"
	if r == RoleServer {
		dir = "event"
	}
	first := fmt.Sprintf("%s sends the %s %s.", m.GoName, mv.Name, dir)
	if mv.Summary != "" {
		first = fmt.Sprintf("%s sends %s: %s.", m.GoName, mv.Name, mv.Summary)
	}
	m.Doc = append(m.Doc, first)
	if mv.Destructor {
		m.Doc = append(m.Doc, "", fmt.Sprintf("The %s is destroyed and must not be used afterwards.", ri.Noun))
	}
	if mv.Since > 1 {
		m.Doc = append(m.Doc, "", fmt.Sprintf("Available since version %d.", mv.Since))
	}

	var params, args []string
	for _, a := range mv.src.Args {
		name := unexported(a.Name, reserved)
		switch a.Type {
		case protocol.ArgInt:
			if t, ok := b.enumType(ri.ifaceView, a); ok {
				params = append(params, name+" "+t)
				args = append(args, "wire.Int(int32("+name+"))")
			} else {
				params = append(params, name+" int32")
				args = append(args, "wire.Int("+name+")")
			}
		case protocol.ArgUint:
			if t, ok := b.enumType(ri.ifaceView, a); ok {
				params = append(params, name+" "+t)
				args = append(args, "wire.Uint(uint32("+name+"))")
			} else {
				params = append(params, name+" uint32")
				args = append(args, "wire.Uint("+name+")")
			}
		case protocol.ArgFixed:
			params = append(params, name+" wire.Fixed")
			args = append(args, "wire.FixedArg("+name+")")
		case protocol.ArgString:
			if a.Nullable {
				params = append(params, name+" *string")
				args = append(args, "optString("+name+")")
			} else {
				params = append(params, name+" string")
				args = append(args, "wire.String("+name+")")
			}
		case protocol.ArgObject:
			if t, ok := b.typedHandle(a.Interface); ok {
				params = append(params, name+" *"+t)
				args = append(args, "session.Ref("+name+".Object())")
			} else {
				params = append(params, name+" *session.Object")
				args = append(args, "session.Ref("+name+")")
			}
		case protocol.ArgNewID:
			if a.Interface == "" {
				iname := unexported(a.Name+"_interface", reserved)
				vname := unexported(a.Name+"_version", reserved)
				params = append(params, iname+" string", vname+" uint32")
				args = append(args, "wire.DynamicNewID("+iname+", "+vname+", 0)")
				m.Returns, m.Result = "(*session.Object, error)", "objs[0]"
			} else if t, ok := b.typedHandle(a.Interface); ok {
				args = append(args, "wire.NewID(0)")
				m.Returns, m.Result = "(*"+t+", error)", "as"+t+"(objs[0])"
			} else {
				args = append(args, "wire.NewID(0)")
				m.Returns, m.Result = "(*session.Object, error)", "objs[0]"
			}
		case protocol.ArgArray:
			params = append(params, name+" []byte")
			args = append(args, "wire.Array("+name+")")
		case protocol.ArgFD:
			params = append(params, name+" int")
			args = append(args, "wire.FD("+name+")")
		}
	}
	m.Params = strings.Join(params, ", ")
	m.Args = strings.Join(args, ", ")
	return m
}

func (b *builder) callback(ri *roleIface, mv *msgView) *callback {
	reserved := b.reserved
	c := &callback{
		GoName: mv.GoName,
		Name:   mv.Name,
		Opcode: b.pkg + "." + mv.OpcodeConst,
	}
	first := fmt.Sprintf("%s is called for the %s %s.", c.GoName, mv.Name, ri.InDir)
	if mv.Summary != "" {
		first = fmt.Sprintf("%s is called for %s: %s.", c.GoName, mv.Name, mv.Summary)
	}
	c.Doc = append(c.Doc, first)
	if mv.Destructor {
		c.Doc = append(c.Doc, fmt.Sprintf("The %s is already destroyed when it runs.", ri.Noun))
	}

	params := []string{"o *" + ri.GoName}
	call := []string{"o"}
	for i, a := range mv.src.Args {
		name := unexported(a.Name, reserved)
		idx := strconv.Itoa(i)
		var typ, expr string
		switch a.Type {
		case protocol.ArgInt:
			typ, expr = "int32", "in.Args["+idx+"].Int"
			if t, ok := b.enumType(ri.ifaceView, a); ok {
				typ, expr = t, t+"("+expr+")"
			}
		case protocol.ArgUint:
			typ, expr = "uint32", "in.Args["+idx+"].Uint"
			if t, ok := b.enumType(ri.ifaceView, a); ok {
				typ, expr = t, t+"("+expr+")"
			}
		case protocol.ArgFixed:
			typ, expr = "wire.Fixed", "in.Args["+idx+"].Fixed"
		case protocol.ArgString:
			typ, expr = "string", "in.Args["+idx+"].String"
			if a.Nullable {
				typ, expr = "*string", "stringPtr(in.Args["+idx+"])"
			}
		case protocol.ArgObject:
			typ, expr = "*session.Object", "in.Object("+idx+")"
			if t, ok := b.typedHandle(a.Interface); ok {
				typ, expr = "*"+t, "as"+t+"(in.Object("+idx+"))"
			}
		case protocol.ArgNewID:
			typ, expr = "*session.Object", "in.Object("+idx+")"
			if t, ok := b.typedHandle(a.Interface); ok {
				typ = "*" + t
				// Wrapped before the nil check so the new object dispatches
				// through its handle even without callbacks installed.
				c.Pre = append(c.Pre, name+" := as"+t+"(in.Object("+idx+"))")
				expr = name
			}
		case protocol.ArgArray:
			typ, expr = "[]byte", "in.Args["+idx+"].Array"
		case protocol.ArgFD:
			typ, expr = "int", "in.Args["+idx+"].FD"
		}
		params = append(params, name+" "+typ)
		call = append(call, expr)
	}
	c.Params = strings.Join(params, ", ")
	c.Call = strings.Join(call, ", ")
	return c
}

func (b *builder) importPath(role Role) string {
	base := strings.TrimSuffix(b.cfg.ImportPath, "/") + "/" + b.pkg
	if role == "" {
		return base
	}
	return base + "/" + string(role)
}

// nameSet records generated identifiers and the first collision.
type nameSet struct {
	seen  map[string]string
	clash error
}

func newNameSet() *nameSet {
	return &nameSet{seen: make(map[string]string)}
}

func (s *nameSet) add(name, what string) {
	if prev, ok := s.seen[name]; ok && s.clash == nil {
		s.clash = fmt.Errorf("%w: %s is generated for both %s and %s", ErrNameCollision, name, prev, what)
		return
	}
	s.seen[name] = what
}

func (s *nameSet) err() error { return s.clash }
