package protocol

import "github.com/compose-network/wlscanner/x/wire"

// Kind maps the argument type onto its wire encoding class.
func (t ArgType) Kind() wire.Kind {
	switch t {
	case ArgInt:
		return wire.KindInt
	case ArgUint:
		return wire.KindUint
	case ArgFixed:
		return wire.KindFixed
	case ArgString:
		return wire.KindString
	case ArgObject:
		return wire.KindObject
	case ArgNewID:
		return wire.KindNewID
	case ArgArray:
		return wire.KindArray
	case ArgFD:
		return wire.KindFD
	default:
		return 0
	}
}

// Descriptor builds the runtime descriptor of the interface. Generated code
// carries the same table as a literal; this form serves tools that work on a
// model loaded at runtime.
func (i *Interface) Descriptor() *wire.Interface {
	return &wire.Interface{
		Name:     i.Name,
		Version:  i.Version,
		Requests: messageSpecs(i.Requests),
		Events:   messageSpecs(i.Events),
	}
}

// Descriptors returns the runtime descriptors of every interface in document
// order.
func (p *Protocol) Descriptors() []*wire.Interface {
	out := make([]*wire.Interface, 0, len(p.Interfaces))
	for _, iface := range p.Interfaces {
		out = append(out, iface.Descriptor())
	}
	return out
}

// messageSpecs leaves empty lists nil, as the generated literals do.
func messageSpecs(msgs []*Message) []wire.MessageSpec {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]wire.MessageSpec, 0, len(msgs))
	for _, m := range msgs {
		spec := wire.MessageSpec{
			Name:       m.Name,
			Since:      m.Since,
			Destructor: m.Destructor,
		}
		for _, a := range m.Args {
			spec.Args = append(spec.Args, wire.ArgSpec{
				Name:      a.Name,
				Kind:      a.Type.Kind(),
				Nullable:  a.Nullable,
				Interface: a.Interface,
			})
		}
		out = append(out, spec)
	}
	return out
}
