package scanner

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/compose-network/wlscanner/x/protocol"
)

// ParseXML reads a protocol document in the Wayland XML format. name is used
// in error locations only.
func ParseXML(name string, r io.Reader) (*protocol.Protocol, error) {
	p := &xmlParser{dec: xml.NewDecoder(r), doc: name}
	proto, err := p.document()
	if err != nil {
		return nil, err
	}
	proto.Document = name
	return proto, nil
}

type xmlParser struct {
	dec *xml.Decoder
	doc string
}

func (p *xmlParser) line() int {
	l, _ := p.dec.InputPos()
	return l
}

func (p *xmlParser) fail(at path, line int, err error) *ParseError {
	return &ParseError{Document: p.doc, Path: at.String(), Line: line, Err: err}
}

func (p *xmlParser) syntax(at path, err error) *ParseError {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return p.fail(at, se.Line, err)
	}
	return p.fail(at, p.line(), err)
}

// document skips the prolog and parses the root protocol element.
func (p *xmlParser) document() (*protocol.Protocol, error) {
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, p.fail(nil, 0, ErrEmptyDocument)
		}
		if err != nil {
			return nil, p.syntax(nil, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "protocol" {
				return nil, p.fail(path{t.Name.Local}, p.line(), fmt.Errorf("%w: expected protocol", ErrUnknownElement))
			}
			return p.protocol(t)
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) > 0 {
				return nil, p.fail(nil, p.line(), ErrUnexpectedText)
			}
		}
	}
}

// attrs collects the attributes of el, rejecting any not listed in allowed
// and any listed in required that are absent.
func (p *xmlParser) attrs(el xml.StartElement, at path, line int, required []string, optional ...string) (map[string]string, error) {
	out := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		name := a.Name.Local
		known := false
		for _, n := range required {
			known = known || n == name
		}
		for _, n := range optional {
			known = known || n == name
		}
		if !known {
			return nil, p.fail(at, line, fmt.Errorf("%w: %s", ErrUnknownAttribute, name))
		}
		out[name] = a.Value
	}
	for _, n := range required {
		if _, ok := out[n]; !ok {
			return nil, p.fail(at, line, fmt.Errorf("%w: %s", ErrMissingAttribute, n))
		}
	}
	return out, nil
}

// children walks the content of the current element up to its end tag.
// Child elements are handed to fn, which must consume them entirely. The
// concatenated character data is returned.
func (p *xmlParser) children(at path, fn func(el xml.StartElement, line int) error) (string, error) {
	var text strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", p.syntax(at, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t, p.line()); err != nil {
				return "", err
			}
		case xml.EndElement:
			return text.String(), nil
		case xml.CharData:
			text.Write(t)
		}
	}
}

// leaf parses an element that may only hold text.
func (p *xmlParser) leaf(at path) (string, error) {
	return p.children(at, func(el xml.StartElement, line int) error {
		return p.fail(at.push(el.Name.Local, ""), line, ErrUnknownElement)
	})
}

func noText(text string) bool {
	return strings.TrimSpace(text) == ""
}

func (p *xmlParser) description(el xml.StartElement, at path, line int, dst *protocol.Description, seen *bool) error {
	at = at.push("description", "")
	if *seen {
		return p.fail(at, line, ErrDuplicateElement)
	}
	*seen = true
	a, err := p.attrs(el, at, line, nil, "summary")
	if err != nil {
		return err
	}
	text, err := p.leaf(at)
	if err != nil {
		return err
	}
	dst.Summary = strings.TrimSpace(a["summary"])
	dst.Text = normalizeText(text)
	return nil
}

func (p *xmlParser) protocol(el xml.StartElement) (*protocol.Protocol, error) {
	line := p.line()
	a, err := p.attrs(el, path{"protocol"}, line, []string{"name"})
	if err != nil {
		return nil, err
	}
	proto := &protocol.Protocol{Name: a["name"]}
	at := path{}.push("protocol", proto.Name)

	var seenCopyright, seenDesc bool
	text, err := p.children(at, func(child xml.StartElement, line int) error {
		switch child.Name.Local {
		case "copyright":
			cat := at.push("copyright", "")
			if seenCopyright {
				return p.fail(cat, line, ErrDuplicateElement)
			}
			seenCopyright = true
			if _, err := p.attrs(child, cat, line, nil); err != nil {
				return err
			}
			text, err := p.leaf(cat)
			if err != nil {
				return err
			}
			proto.Copyright = normalizeText(text)
			return nil
		case "description":
			return p.description(child, at, line, &proto.Description, &seenDesc)
		case "interface":
			iface, err := p.iface(child, at, line)
			if err != nil {
				return err
			}
			proto.Interfaces = append(proto.Interfaces, iface)
			return nil
		default:
			return p.fail(at.push(child.Name.Local, ""), line, ErrUnknownElement)
		}
	})
	if err != nil {
		return nil, err
	}
	if !noText(text) {
		return nil, p.fail(at, line, ErrUnexpectedText)
	}
	if len(proto.Interfaces) == 0 {
		return nil, p.fail(at, line, ErrNoInterfaces)
	}
	return proto, nil
}

func (p *xmlParser) iface(el xml.StartElement, parent path, line int) (*protocol.Interface, error) {
	a, err := p.attrs(el, parent.push("interface", ""), line, []string{"name", "version"}, "frozen")
	if err != nil {
		return nil, err
	}
	iface := &protocol.Interface{Name: a["name"]}
	at := parent.push("interface", iface.Name)
	if iface.Version, err = parseUint32(a["version"]); err != nil {
		return nil, p.fail(at, line, fmt.Errorf("version: %w", err))
	}
	if v, ok := a["frozen"]; ok {
		if iface.Frozen, err = parseBool(v); err != nil {
			return nil, p.fail(at, line, fmt.Errorf("frozen: %w", err))
		}
	}

	var seenDesc bool
	text, err := p.children(at, func(child xml.StartElement, line int) error {
		switch child.Name.Local {
		case "description":
			return p.description(child, at, line, &iface.Description, &seenDesc)
		case "request":
			m, err := p.message(child, at, line, len(iface.Requests))
			if err != nil {
				return err
			}
			iface.Requests = append(iface.Requests, m)
			return nil
		case "event":
			m, err := p.message(child, at, line, len(iface.Events))
			if err != nil {
				return err
			}
			iface.Events = append(iface.Events, m)
			return nil
		case "enum":
			e, err := p.enum(child, at, line)
			if err != nil {
				return err
			}
			iface.Enums = append(iface.Enums, e)
			return nil
		default:
			return p.fail(at.push(child.Name.Local, ""), line, ErrUnknownElement)
		}
	})
	if err != nil {
		return nil, err
	}
	if !noText(text) {
		return nil, p.fail(at, line, ErrUnexpectedText)
	}
	return iface, nil
}

func (p *xmlParser) message(el xml.StartElement, parent path, line int, opcode int) (*protocol.Message, error) {
	kind := el.Name.Local
	a, err := p.attrs(el, parent.push(kind, ""), line, []string{"name"}, "type", "since", "deprecated-since")
	if err != nil {
		return nil, err
	}
	m := &protocol.Message{Name: a["name"], Opcode: uint16(opcode), Since: 1}
	at := parent.push(kind, m.Name)
	if opcode > 0xffff {
		return nil, p.fail(at, line, fmt.Errorf("%w: more than 65536 %ss", ErrBadValue, kind))
	}
	if t, ok := a["type"]; ok {
		if t != "destructor" {
			return nil, p.fail(at, line, fmt.Errorf("%w: type %q", ErrBadValue, t))
		}
		m.Destructor = true
	}
	if err := p.versions(a, at, line, &m.Since, &m.DeprecatedSince); err != nil {
		return nil, err
	}

	var seenDesc bool
	text, err := p.children(at, func(child xml.StartElement, line int) error {
		switch child.Name.Local {
		case "description":
			return p.description(child, at, line, &m.Description, &seenDesc)
		case "arg":
			arg, err := p.arg(child, at, line)
			if err != nil {
				return err
			}
			m.Args = append(m.Args, arg)
			return nil
		default:
			return p.fail(at.push(child.Name.Local, ""), line, ErrUnknownElement)
		}
	})
	if err != nil {
		return nil, err
	}
	if !noText(text) {
		return nil, p.fail(at, line, ErrUnexpectedText)
	}
	return m, nil
}

func (p *xmlParser) versions(a map[string]string, at path, line int, since, deprecated *uint32) error {
	var err error
	if v, ok := a["since"]; ok {
		if *since, err = parseUint32(v); err != nil {
			return p.fail(at, line, fmt.Errorf("since: %w", err))
		}
	}
	if v, ok := a["deprecated-since"]; ok {
		if *deprecated, err = parseUint32(v); err != nil {
			return p.fail(at, line, fmt.Errorf("deprecated-since: %w", err))
		}
	}
	return nil
}

func (p *xmlParser) arg(el xml.StartElement, parent path, line int) (*protocol.Arg, error) {
	a, err := p.attrs(el, parent.push("arg", ""), line, []string{"name", "type"}, "summary", "interface", "allow-null", "enum")
	if err != nil {
		return nil, err
	}
	arg := &protocol.Arg{
		Name:      a["name"],
		Interface: a["interface"],
		Enum:      a["enum"],
		Summary:   strings.TrimSpace(a["summary"]),
	}
	at := parent.push("arg", arg.Name)
	if arg.Type, err = protocol.ParseArgType(a["type"]); err != nil {
		return nil, p.fail(at, line, fmt.Errorf("%w: %w", ErrBadValue, err))
	}
	if v, ok := a["allow-null"]; ok {
		if arg.Nullable, err = parseBool(v); err != nil {
			return nil, p.fail(at, line, fmt.Errorf("allow-null: %w", err))
		}
	}

	var seenDesc bool
	text, err := p.children(at, func(child xml.StartElement, line int) error {
		if child.Name.Local == "description" {
			return p.description(child, at, line, &arg.Description, &seenDesc)
		}
		return p.fail(at.push(child.Name.Local, ""), line, ErrUnknownElement)
	})
	if err != nil {
		return nil, err
	}
	if !noText(text) {
		return nil, p.fail(at, line, ErrUnexpectedText)
	}
	return arg, nil
}

func (p *xmlParser) enum(el xml.StartElement, parent path, line int) (*protocol.Enum, error) {
	a, err := p.attrs(el, parent.push("enum", ""), line, []string{"name"}, "since", "bitfield")
	if err != nil {
		return nil, err
	}
	e := &protocol.Enum{Name: a["name"], Since: 1}
	at := parent.push("enum", e.Name)
	if v, ok := a["since"]; ok {
		if e.Since, err = parseUint32(v); err != nil {
			return nil, p.fail(at, line, fmt.Errorf("since: %w", err))
		}
	}
	if v, ok := a["bitfield"]; ok {
		if e.Bitfield, err = parseBool(v); err != nil {
			return nil, p.fail(at, line, fmt.Errorf("bitfield: %w", err))
		}
	}

	var seenDesc bool
	text, err := p.children(at, func(child xml.StartElement, line int) error {
		switch child.Name.Local {
		case "description":
			return p.description(child, at, line, &e.Description, &seenDesc)
		case "entry":
			entry, err := p.entry(child, at, line)
			if err != nil {
				return err
			}
			e.Entries = append(e.Entries, entry)
			return nil
		default:
			return p.fail(at.push(child.Name.Local, ""), line, ErrUnknownElement)
		}
	})
	if err != nil {
		return nil, err
	}
	if !noText(text) {
		return nil, p.fail(at, line, ErrUnexpectedText)
	}
	return e, nil
}

func (p *xmlParser) entry(el xml.StartElement, parent path, line int) (*protocol.Entry, error) {
	a, err := p.attrs(el, parent.push("entry", ""), line, []string{"name", "value"}, "summary", "since", "deprecated-since")
	if err != nil {
		return nil, err
	}
	entry := &protocol.Entry{Name: a["name"], Since: 1, Summary: strings.TrimSpace(a["summary"])}
	at := parent.push("entry", entry.Name)
	if entry.Value, err = parseUint32(a["value"]); err != nil {
		return nil, p.fail(at, line, fmt.Errorf("value: %w", err))
	}
	if err := p.versions(a, at, line, &entry.Since, &entry.DeprecatedSince); err != nil {
		return nil, err
	}

	var seenDesc bool
	text, err := p.children(at, func(child xml.StartElement, line int) error {
		if child.Name.Local == "description" {
			return p.description(child, at, line, &entry.Description, &seenDesc)
		}
		return p.fail(at.push(child.Name.Local, ""), line, ErrUnknownElement)
	})
	if err != nil {
		return nil, err
	}
	if !noText(text) {
		return nil, p.fail(at, line, ErrUnexpectedText)
	}
	return entry, nil
}
