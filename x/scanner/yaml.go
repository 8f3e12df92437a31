package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/compose-network/wlscanner/x/protocol"
)

// ParseYAML reads a protocol document in the YAML rendering of the model:
//
//	name: widget
//	interfaces:
//	  - name: widget_factory
//	    version: 2
//	    requests:
//	      - name: create
//	        args:
//	          - {name: id, type: new_id, interface: widget}
//
// Unknown keys are rejected. Opcodes follow declaration order and an absent
// since defaults to 1, as in the XML format.
func ParseYAML(name string, r io.Reader) (*protocol.Protocol, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Document: name, Err: err}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Document: name, Line: yamlErrorLine(err), Err: err}
	}
	if len(root.Content) == 0 {
		return nil, &ParseError{Document: name, Err: ErrEmptyDocument}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var proto protocol.Protocol
	if err := dec.Decode(&proto); err != nil {
		return nil, &ParseError{Document: name, Line: yamlErrorLine(err), Err: err}
	}

	n := &yamlNormalizer{doc: name, root: root.Content[0]}
	if err := n.protocol(&proto); err != nil {
		return nil, err
	}
	proto.Document = name
	return &proto, nil
}

// yamlErrorLine extracts the first "line N" position yaml.v3 reports.
func yamlErrorLine(err error) int {
	var te *yaml.TypeError
	msg := err.Error()
	if errors.As(err, &te) && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}
	_, rest, ok := strings.Cut(msg, "line ")
	if !ok {
		return 0
	}
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end >= 0 {
		rest = rest[:end]
	}
	line, _ := strconv.Atoi(rest)
	return line
}

// yamlNormalizer applies the defaults and required-field checks the XML
// front-end gets from its attribute handling.
type yamlNormalizer struct {
	doc  string
	root *yaml.Node
}

// line resolves a key path such as "interfaces", 0, "requests", 2 to the
// line of the addressed node.
func (n *yamlNormalizer) line(keys ...any) int {
	node := n.root
	for _, k := range keys {
		var next *yaml.Node
		switch k := k.(type) {
		case string:
			if node.Kind == yaml.MappingNode {
				for i := 0; i+1 < len(node.Content); i += 2 {
					if node.Content[i].Value == k {
						next = node.Content[i+1]
						break
					}
				}
			}
		case int:
			if node.Kind == yaml.SequenceNode && k < len(node.Content) {
				next = node.Content[k]
			}
		}
		if next == nil {
			break
		}
		node = next
	}
	return node.Line
}

func (n *yamlNormalizer) fail(at path, line int, err error) *ParseError {
	return &ParseError{Document: n.doc, Path: at.String(), Line: line, Err: err}
}

func (n *yamlNormalizer) protocol(p *protocol.Protocol) error {
	if p.Name == "" {
		return n.fail(path{"protocol"}, n.line(), fmt.Errorf("%w: name", ErrMissingAttribute))
	}
	at := path{}.push("protocol", p.Name)
	if len(p.Interfaces) == 0 {
		return n.fail(at, n.line(), ErrNoInterfaces)
	}
	p.Copyright = normalizeText(p.Copyright)
	normalizeDescription(&p.Description)

	for i, iface := range p.Interfaces {
		keys := []any{"interfaces", i}
		if iface == nil || iface.Name == "" {
			return n.fail(at.push("interface", ""), n.line(keys...), fmt.Errorf("%w: name", ErrMissingAttribute))
		}
		iat := at.push("interface", iface.Name)
		if iface.Version == 0 && !n.has(keys, "version") {
			return n.fail(iat, n.line(keys...), fmt.Errorf("%w: version", ErrMissingAttribute))
		}
		normalizeDescription(&iface.Description)
		if err := n.messages(iface.Requests, "request", "requests", iat, keys); err != nil {
			return err
		}
		if err := n.messages(iface.Events, "event", "events", iat, keys); err != nil {
			return err
		}
		if err := n.enums(iface.Enums, iat, keys); err != nil {
			return err
		}
	}
	return nil
}

// has reports whether the mapping addressed by keys sets key explicitly.
func (n *yamlNormalizer) has(keys []any, key string) bool {
	node := n.root
	for _, k := range keys {
		switch k := k.(type) {
		case string:
			found := false
			for i := 0; node.Kind == yaml.MappingNode && i+1 < len(node.Content); i += 2 {
				if node.Content[i].Value == k {
					node, found = node.Content[i+1], true
					break
				}
			}
			if !found {
				return false
			}
		case int:
			if node.Kind != yaml.SequenceNode || k >= len(node.Content) {
				return false
			}
			node = node.Content[k]
		}
	}
	for i := 0; node.Kind == yaml.MappingNode && i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func (n *yamlNormalizer) messages(msgs []*protocol.Message, kind, field string, parent path, parentKeys []any) error {
	if len(msgs) > 0x10000 {
		return n.fail(parent, n.line(append(parentKeys, field)...), fmt.Errorf("%w: more than 65536 %ss", ErrBadValue, kind))
	}
	for i, m := range msgs {
		keys := append(append([]any{}, parentKeys...), field, i)
		if m == nil || m.Name == "" {
			return n.fail(parent.push(kind, ""), n.line(keys...), fmt.Errorf("%w: name", ErrMissingAttribute))
		}
		at := parent.push(kind, m.Name)
		m.Opcode = uint16(i)
		if m.Since == 0 {
			if n.has(keys, "since") {
				return n.fail(at, n.line(keys...), fmt.Errorf("since: %w: 0", ErrBadNumber))
			}
			m.Since = 1
		}
		normalizeDescription(&m.Description)
		for j, a := range m.Args {
			akeys := append(append([]any{}, keys...), "args", j)
			if a == nil || a.Name == "" {
				return n.fail(at.push("arg", ""), n.line(akeys...), fmt.Errorf("%w: name", ErrMissingAttribute))
			}
			aat := at.push("arg", a.Name)
			if a.Type == "" {
				return n.fail(aat, n.line(akeys...), fmt.Errorf("%w: type", ErrMissingAttribute))
			}
			if _, err := protocol.ParseArgType(string(a.Type)); err != nil {
				return n.fail(aat, n.line(append(akeys, "type")...), fmt.Errorf("%w: %w", ErrBadValue, err))
			}
			a.Summary = strings.TrimSpace(a.Summary)
			normalizeDescription(&a.Description)
		}
	}
	return nil
}

func (n *yamlNormalizer) enums(enums []*protocol.Enum, parent path, parentKeys []any) error {
	for i, e := range enums {
		keys := append(append([]any{}, parentKeys...), "enums", i)
		if e == nil || e.Name == "" {
			return n.fail(parent.push("enum", ""), n.line(keys...), fmt.Errorf("%w: name", ErrMissingAttribute))
		}
		at := parent.push("enum", e.Name)
		if e.Since == 0 {
			e.Since = 1
		}
		normalizeDescription(&e.Description)
		for j, entry := range e.Entries {
			ekeys := append(append([]any{}, keys...), "entries", j)
			if entry == nil || entry.Name == "" {
				return n.fail(at.push("entry", ""), n.line(ekeys...), fmt.Errorf("%w: name", ErrMissingAttribute))
			}
			if !n.has(ekeys, "value") {
				return n.fail(at.push("entry", entry.Name), n.line(ekeys...), fmt.Errorf("%w: value", ErrMissingAttribute))
			}
			if entry.Since == 0 {
				entry.Since = 1
			}
			entry.Summary = strings.TrimSpace(entry.Summary)
			normalizeDescription(&entry.Description)
		}
	}
	return nil
}

func normalizeDescription(d *protocol.Description) {
	d.Summary = strings.TrimSpace(d.Summary)
	d.Text = normalizeText(d.Text)
}
