package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/compose-network/wlscanner/x/wire"
)

// Role is the side of the connection a session plays.
type Role int

const (
	// RoleClient issues requests and receives events.
	RoleClient Role = iota
	// RoleServer receives requests and issues events.
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Transport carries framed messages to the peer. fds travel on the side
// channel in the same order as the fd arguments in data.
type Transport interface {
	WriteMessage(data []byte, fds []int) error
}

// Handler receives decoded messages for one object. Generated typed handles
// implement it.
type Handler interface {
	Dispatch(in *Incoming) error
}

// Incoming is one decoded message with its lifecycle effects applied.
type Incoming struct {
	Target *Object
	Opcode uint16
	Spec   *wire.MessageSpec
	Args   []wire.Arg
	// Objects holds the resolved object of each object and new_id argument
	// at the argument's index; other entries and null objects are nil.
	Objects []*Object
	// FDs is the number of side-channel descriptors consumed.
	FDs int
}

// Object returns the resolved object of argument i.
func (in *Incoming) Object(i int) *Object {
	if i < 0 || i >= len(in.Objects) {
		return nil
	}
	return in.Objects[i]
}

// Session marshals and unmarshals messages for one connection and owns its
// identifier namespace. It holds no locks; callers serialise access.
type Session struct {
	role       Role
	objects    *ObjectMap
	interfaces map[string]*wire.Interface
	transport  Transport
	log        zerolog.Logger
	metrics    *Metrics
}

// New creates a session for role writing to transport.
func New(role Role, transport Transport, opts ...Option) *Session {
	cfg := Config{Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Session{
		role:       role,
		objects:    NewObjectMap(),
		interfaces: make(map[string]*wire.Interface),
		transport:  transport,
		log:        cfg.Logger.With().Str("component", "session").Str("role", role.String()).Logger(),
		metrics:    cfg.Metrics,
	}
	s.Register(cfg.Interfaces...)
	return s
}

// Register declares interfaces this side implements. The descriptor's
// version is the locally supported version.
func (s *Session) Register(ifaces ...*wire.Interface) {
	for _, iface := range ifaces {
		s.interfaces[iface.Name] = iface
	}
}

// Role returns the side this session plays.
func (s *Session) Role() Role { return s.role }

// Objects exposes the identifier table.
func (s *Session) Objects() *ObjectMap { return s.objects }

// Interface returns the locally registered descriptor for name.
func (s *Session) Interface(name string) (*wire.Interface, bool) {
	iface, ok := s.interfaces[name]
	return iface, ok
}

// Bind creates a well-known object outside of any message, such as the
// initial display object. The negotiated version is min(version, local).
func (s *Session) Bind(id wire.ObjectID, iface *wire.Interface, version uint32) (*Object, error) {
	if local, ok := s.interfaces[iface.Name]; ok {
		iface = local
	} else {
		s.interfaces[iface.Name] = iface
	}
	v := min(version, iface.Version)
	if v == 0 {
		return nil, s.fail(misuse(nil, nil, fmt.Errorf("%w: %s version %d", ErrBadVersion, iface.Name, version)))
	}
	obj, err := s.objects.insert(id, iface, v, true)
	if err != nil {
		return nil, s.fail(misuse(nil, nil, fmt.Errorf("%w: bind %s at %d", err, iface.Name, id)))
	}
	obj.session = s
	s.metrics.recordCreated(obj)
	s.log.Debug().Stringer("object", obj).Msg("Bound well-known object")
	return obj, nil
}

// Ref returns an object argument referring to obj; nil is the null object.
// Unlike wire.Object, the argument remembers obj itself, so Send rejects it
// once obj is destroyed even if its id has been released and reused.
func Ref(obj *Object) wire.Arg {
	if obj == nil {
		return wire.Object(0)
	}
	a := wire.Object(obj.id)
	a.Handle = obj
	return a
}

// Send marshals a request (client) or event (server) on target and writes it
// to the transport. new_id arguments must carry id 0; the session allocates
// the id and returns the created objects in argument order. Nothing is
// written when an error is returned.
func (s *Session) Send(target *Object, opcode uint16, args ...wire.Arg) ([]*Object, error) {
	if target == nil {
		return nil, s.fail(misuse(nil, nil, ErrUnknownObject))
	}
	if !target.Alive() || target.session != s {
		return nil, s.fail(misuse(target, nil, ErrDestroyedObject))
	}
	spec, ok := target.iface.Message(s.role == RoleServer, opcode)
	if !ok {
		return nil, s.fail(misuse(target, nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, opcode)))
	}
	if spec.Since > target.version {
		return nil, s.fail(misuse(target, spec, fmt.Errorf("%w: since %d, bound at %d", ErrVersionUnavailable, spec.Since, target.version)))
	}
	if len(args) != len(spec.Args) {
		return nil, s.fail(misuse(target, spec, fmt.Errorf("%w: want %d, got %d", wire.ErrArgCount, len(spec.Args), len(args))))
	}

	out := make([]wire.Arg, len(args))
	copy(out, args)
	var created []*Object
	rollback := func() {
		for i := len(created) - 1; i >= 0; i-- {
			s.objects.abandon(created[i])
		}
	}

	for i, as := range spec.Args {
		a := &out[i]
		if a.Kind != as.Kind {
			rollback()
			return nil, s.fail(misuse(target, spec, fmt.Errorf("%w: %s is %s, got %s", wire.ErrArgKind, as.Name, as.Kind, a.Kind)))
		}
		switch as.Kind {
		case wire.KindObject:
			if err := s.checkHandle(a); err != nil {
				rollback()
				return nil, s.fail(misuse(target, spec, fmt.Errorf("%w: %s", err, as.Name)))
			}
			if a.Object == 0 {
				continue
			}
			if err := s.checkReference(as, a.Object); err != nil {
				rollback()
				return nil, s.fail(misuse(target, spec, fmt.Errorf("%w: %s", err, as.Name)))
			}
		case wire.KindNewID:
			if a.Object != 0 {
				rollback()
				return nil, s.fail(misuse(target, spec, fmt.Errorf("%w: %s", ErrPresetNewID, as.Name)))
			}
			iface, version, err := s.resolveNewID(target, as, a)
			if err != nil {
				rollback()
				return nil, s.fail(misuse(target, spec, fmt.Errorf("%w: %s", err, as.Name)))
			}
			obj, err := s.objects.allocate(s.ownRange(), iface, version)
			if err != nil {
				rollback()
				return nil, s.fail(misuse(target, spec, err))
			}
			obj.session = s
			a.Object = obj.id
			if as.Dynamic() {
				a.Version = version
			}
			created = append(created, obj)
		}
	}

	body, fds, err := wire.MarshalArgs(spec, out)
	if err != nil {
		rollback()
		return nil, s.fail(misuse(target, spec, err))
	}
	data, err := wire.AppendMessage(make([]byte, 0, wire.HeaderSize+len(body)), target.id, opcode, body)
	if err != nil {
		rollback()
		return nil, s.fail(misuse(target, spec, err))
	}
	if err := s.transport.WriteMessage(data, fds); err != nil {
		rollback()
		return nil, fmt.Errorf("session: write %s.%s: %w", target, spec.Name, err)
	}

	for _, obj := range created {
		s.metrics.recordCreated(obj)
	}
	s.metrics.recordMessage("out", target.iface.Name, len(data))
	s.log.Trace().
		Stringer("object", target).
		Str("message", spec.Name).
		Int("size", len(data)).
		Int("fds", len(fds)).
		Msg("Sent message")

	if spec.Destructor {
		s.destroy(target)
	}
	return created, nil
}

// Send sends on the session owning target. Generated handles use it so a nil
// or detached handle is reported as misuse rather than a nil dereference.
func Send(target *Object, opcode uint16, args ...wire.Arg) ([]*Object, error) {
	if target == nil || target.session == nil {
		return nil, misuse(target, nil, ErrUnknownObject)
	}
	return target.session.Send(target, opcode, args...)
}

// Decode unmarshals an inbound message and applies its lifecycle effects:
// new objects are registered and a destructor unregisters its target. Every
// error is a protocol fault.
func (s *Session) Decode(msg wire.Message) (*Incoming, error) {
	target, ok := s.objects.Lookup(msg.Sender)
	if !ok {
		cause := ErrUnknownObject
		if s.objects.Destroyed(msg.Sender) {
			cause = ErrDestroyedObject
		}
		return nil, s.fail(&Error{Kind: ErrorKindProtocol, Object: msg.Sender, Err: cause})
	}
	spec, ok := target.iface.Message(s.role == RoleClient, msg.Opcode)
	if !ok {
		return nil, s.fail(fault(target, nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, msg.Opcode)))
	}
	if spec.Since > target.version {
		return nil, s.fail(fault(target, spec, fmt.Errorf("%w: since %d, bound at %d", ErrVersionUnavailable, spec.Since, target.version)))
	}
	args, used, err := wire.UnmarshalArgs(spec, msg.Body, msg.FDs)
	if err != nil {
		return nil, s.fail(fault(target, spec, err))
	}

	in := &Incoming{
		Target:  target,
		Opcode:  msg.Opcode,
		Spec:    spec,
		Args:    args,
		Objects: make([]*Object, len(args)),
		FDs:     used,
	}

	// References are checked before anything is registered so a fault
	// leaves the table untouched.
	for i, as := range spec.Args {
		if as.Kind != wire.KindObject || args[i].Object == 0 {
			continue
		}
		if err := s.checkReference(as, args[i].Object); err != nil {
			return nil, s.fail(fault(target, spec, fmt.Errorf("%w: %s", err, as.Name)))
		}
		in.Objects[i], _ = s.objects.Lookup(args[i].Object)
	}

	var created []*Object
	for i, as := range spec.Args {
		if as.Kind != wire.KindNewID {
			continue
		}
		obj, err := s.acceptNewID(target, as, args[i])
		if err != nil {
			for j := len(created) - 1; j >= 0; j-- {
				s.objects.abandon(created[j])
			}
			return nil, s.fail(fault(target, spec, fmt.Errorf("%w: %s", err, as.Name)))
		}
		created = append(created, obj)
		in.Objects[i] = obj
	}

	for _, obj := range created {
		s.metrics.recordCreated(obj)
	}
	s.metrics.recordMessage("in", target.iface.Name, wire.HeaderSize+len(msg.Body))
	if spec.Destructor {
		s.destroy(target)
	}
	return in, nil
}

// Dispatch decodes msg and hands it to the target's handler. It returns the
// number of side-channel descriptors the message consumed.
func (s *Session) Dispatch(msg wire.Message) (int, error) {
	in, err := s.Decode(msg)
	if err != nil {
		return 0, err
	}
	h := in.Target.handler
	if h == nil {
		s.log.Debug().
			Stringer("object", in.Target).
			Str("message", in.Spec.Name).
			Msg("No handler installed, message dropped")
		return in.FDs, nil
	}
	if err := h.Dispatch(in); err != nil {
		return in.FDs, fmt.Errorf("session: handle %s.%s: %w", in.Target, in.Spec.Name, err)
	}
	return in.FDs, nil
}

// Release frees a destroyed id for reuse.
func (s *Session) Release(id wire.ObjectID) error {
	if err := s.objects.Release(id); err != nil {
		return s.fail(&Error{Kind: ErrorKindMisuse, Object: id, Err: err})
	}
	return nil
}

// Reset tears down the whole identifier namespace, as on reconnect. Ids may
// be reused afterwards; handles from before are no longer alive.
func (s *Session) Reset() {
	live := s.objects.Len()
	s.objects.Reset()
	s.metrics.recordReset(live)
	s.log.Debug().Int("objects", live).Uint64("epoch", s.objects.Epoch()).Msg("Identifier namespace reset")
}

func (s *Session) ownRange() *idRange {
	if s.role == RoleServer {
		return &s.objects.server
	}
	return &s.objects.client
}

func (s *Session) peerRange() *idRange {
	if s.role == RoleServer {
		return &s.objects.client
	}
	return &s.objects.server
}

// checkHandle rejects an object argument built by Ref from a handle that is
// no longer the live occupant of its id in this session.
func (s *Session) checkHandle(a *wire.Arg) error {
	h, ok := a.Handle.(*Object)
	if !ok || h == nil {
		return nil
	}
	if h.session != s {
		return fmt.Errorf("%w: %s belongs to another session", ErrUnknownObject, h)
	}
	if h.id != a.Object || !h.Alive() {
		return fmt.Errorf("%w: %s", ErrDestroyedObject, h)
	}
	return nil
}

func (s *Session) checkReference(as wire.ArgSpec, id wire.ObjectID) error {
	obj, ok := s.objects.Lookup(id)
	if !ok {
		if s.objects.Destroyed(id) {
			return fmt.Errorf("%w: %d", ErrDestroyedObject, id)
		}
		return fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	if as.Interface != "" && obj.iface.Name != as.Interface {
		return fmt.Errorf("%w: %s is %s, want %s", ErrWrongInterface, obj, obj.iface.Name, as.Interface)
	}
	return nil
}

// resolveNewID picks the interface and version of an object about to be
// created: typed children inherit the parent's version, dynamic ones use the
// requested version, both capped by what this side supports.
func (s *Session) resolveNewID(parent *Object, as wire.ArgSpec, a *wire.Arg) (*wire.Interface, uint32, error) {
	name, requested := as.Interface, parent.version
	if as.Dynamic() {
		name, requested = a.Interface, a.Version
	}
	iface, ok := s.interfaces[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownInterface, name)
	}
	v := min(requested, iface.Version)
	if v == 0 {
		return nil, 0, fmt.Errorf("%w: %s version %d", ErrBadVersion, name, requested)
	}
	return iface, v, nil
}

func (s *Session) acceptNewID(parent *Object, as wire.ArgSpec, a wire.Arg) (*Object, error) {
	if !s.peerRange().contains(a.Object) {
		return nil, fmt.Errorf("%w: %d", ErrIDOutOfRange, a.Object)
	}
	iface, version, err := s.resolveNewID(parent, as, &a)
	if err != nil {
		return nil, err
	}
	obj, err := s.objects.insert(a.Object, iface, version, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", err, a.Object)
	}
	obj.session = s
	return obj, nil
}

func (s *Session) destroy(obj *Object) {
	s.objects.destroy(obj.id)
	s.metrics.recordDestroyed(obj)
	s.log.Debug().Stringer("object", obj).Msg("Object destroyed")
}

func (s *Session) fail(err *Error) *Error {
	s.metrics.recordError(err)
	ev := s.log.Debug()
	if err.Kind == ErrorKindProtocol {
		ev = s.log.Warn()
	}
	ev.Err(err).Str("kind", err.Kind.String()).Msg("Session error")
	return err
}
