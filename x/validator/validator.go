package validator

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/compose-network/wlscanner/x/protocol"
)

// Set is one compilation unit. Imports take part in name resolution and
// interface uniqueness but are not checked otherwise and not generated.
type Set struct {
	Protocols []*protocol.Protocol
	Imports   []*protocol.Protocol
}

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	// Entry names may start with a digit, e.g. wl_output.transform's "90".
	entryRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Validator checks a parsed set for internal consistency.
type Validator struct {
	log zerolog.Logger
}

// New creates a validator logging through log.
func New(log zerolog.Logger) *Validator {
	return &Validator{log: log.With().Str("component", "validator").Logger()}
}

// Validate returns nil or an *Errors listing every violation in set.
func (v *Validator) Validate(set Set) error {
	err := Validate(set)
	if err != nil {
		errs := err.(*Errors)
		for _, e := range errs.List {
			v.log.Debug().Str("rule", string(e.Rule)).Msg(e.Error())
		}
		v.log.Warn().Int("errors", len(errs.List)).Int("protocols", len(set.Protocols)).Msg("Validation failed")
		return err
	}
	v.log.Debug().Int("protocols", len(set.Protocols)).Msg("Validation passed")
	return nil
}

// Validate returns nil or an *Errors listing every violation in set.
func Validate(set Set) error {
	c := &checker{interfaces: make(map[string]*protocol.Interface)}
	c.index(set)
	for _, p := range set.Protocols {
		c.protocol(p)
	}
	if len(c.errs) == 0 {
		return nil
	}
	return &Errors{List: c.errs}
}

type checker struct {
	interfaces map[string]*protocol.Interface
	errs       []*Error
}

// loc is the position of the node being checked.
type loc struct {
	proto, iface, dir, msg, arg, enum, entry string
}

func (c *checker) report(at loc, rule Rule, format string, args ...any) {
	c.errs = append(c.errs, &Error{
		Protocol:  at.proto,
		Interface: at.iface,
		Direction: at.dir,
		Message:   at.msg,
		Arg:       at.arg,
		Enum:      at.enum,
		Entry:     at.entry,
		Rule:      rule,
		Detail:    fmt.Sprintf(format, args...),
	})
}

// index registers every interface name of the set and reports duplicates,
// imports first so a generated protocol clashing with a dependency is the
// one blamed.
func (c *checker) index(set Set) {
	owner := make(map[string]string)
	add := func(p *protocol.Protocol) {
		for _, iface := range p.Interfaces {
			if prev, ok := owner[iface.Name]; ok {
				c.report(loc{proto: p.Name, iface: iface.Name}, RuleDuplicateInterface,
					"interface %q is already declared by protocol %q", iface.Name, prev)
				continue
			}
			owner[iface.Name] = p.Name
			c.interfaces[iface.Name] = iface
		}
	}
	for _, p := range set.Imports {
		add(p)
	}
	for _, p := range set.Protocols {
		add(p)
	}
}

func (c *checker) name(at loc, kind, name string, re *regexp.Regexp) {
	if !re.MatchString(name) {
		c.report(at, RuleBadName, "%s name %q is not a valid identifier", kind, name)
	}
}

func (c *checker) protocol(p *protocol.Protocol) {
	at := loc{proto: p.Name}
	c.name(at, "protocol", p.Name, identRe)
	for _, iface := range p.Interfaces {
		c.iface(at, iface)
	}
}

func (c *checker) iface(parent loc, iface *protocol.Interface) {
	at := parent
	at.iface = iface.Name
	c.name(at, "interface", iface.Name, identRe)
	if iface.Version < 1 {
		c.report(at, RuleBadVersion, "version must be at least 1, got %d", iface.Version)
	}

	for _, dir := range []protocol.Direction{protocol.Request, protocol.Event} {
		c.messages(at, iface, dir)
	}

	enums := make(map[string]bool, len(iface.Enums))
	for _, e := range iface.Enums {
		eat := at
		eat.enum = e.Name
		c.name(eat, "enum", e.Name, identRe)
		if enums[e.Name] {
			c.report(eat, RuleDuplicateEnum, "enum %q declared twice", e.Name)
		}
		enums[e.Name] = true
		c.since(eat, iface, "enum", e.Since, 0)
		c.entries(eat, iface, e)
	}
}

func (c *checker) messages(parent loc, iface *protocol.Interface, dir protocol.Direction) {
	seen := make(map[string]bool)
	var (
		destructor *protocol.Message
		lastSince  uint32
		lastName   string
	)
	for _, m := range iface.Messages(dir) {
		at := parent
		at.dir, at.msg = dir.String(), m.Name
		c.name(at, dir.String(), m.Name, identRe)
		if seen[m.Name] {
			c.report(at, RuleDuplicateMessage, "%s %q declared twice", dir, m.Name)
		}
		seen[m.Name] = true

		c.since(at, iface, dir.String(), m.Since, m.DeprecatedSince)
		if m.Since < lastSince {
			c.report(at, RuleSinceDecreasing,
				"since %d follows %q at since %d; new messages must be appended", m.Since, lastName, lastSince)
		} else {
			lastSince, lastName = m.Since, m.Name
		}

		if m.Destructor {
			if destructor != nil {
				c.report(at, RuleMultipleDestructors, "%q is already the destructor %s", destructor.Name, dir)
			} else {
				destructor = m
			}
		}

		if ids := m.NewIDs(); len(ids) > 1 {
			c.report(at, RuleMultipleNewIDs, "%d new_id arguments; a message creates at most one object", len(ids))
		}

		args := make(map[string]bool, len(m.Args))
		for _, a := range m.Args {
			aat := at
			aat.arg = a.Name
			c.name(aat, "arg", a.Name, identRe)
			if args[a.Name] {
				c.report(aat, RuleDuplicateArg, "argument %q declared twice", a.Name)
			}
			args[a.Name] = true
			c.arg(aat, iface, a)
		}
	}
}

func (c *checker) since(at loc, iface *protocol.Interface, kind string, since, deprecated uint32) {
	if since < 1 || since > iface.Version {
		c.report(at, RuleSinceOutOfRange, "%s since %d outside 1..%d", kind, since, iface.Version)
	}
	if deprecated == 0 {
		return
	}
	if deprecated <= since || deprecated > iface.Version {
		c.report(at, RuleDeprecatedSince, "deprecated-since %d must be above since %d and at most %d", deprecated, since, iface.Version)
	}
}

func (c *checker) entries(at loc, iface *protocol.Interface, e *protocol.Enum) {
	seen := make(map[string]bool, len(e.Entries))
	for _, entry := range e.Entries {
		eat := at
		eat.entry = entry.Name
		c.name(eat, "entry", entry.Name, entryRe)
		if seen[entry.Name] {
			c.report(eat, RuleDuplicateEntry, "entry %q declared twice", entry.Name)
		}
		seen[entry.Name] = true
		c.since(eat, iface, "entry", entry.Since, entry.DeprecatedSince)
	}
}

func (c *checker) arg(at loc, iface *protocol.Interface, a *protocol.Arg) {
	switch a.Type {
	case protocol.ArgObject, protocol.ArgNewID:
		if a.Interface != "" && c.interfaces[a.Interface] == nil {
			c.report(at, RuleUnresolvedInterface, "interface %q is not declared", a.Interface)
		}
	default:
		if a.Interface != "" {
			c.report(at, RuleInterfaceArgType, "interface attribute on %s argument", a.Type)
		}
	}

	if a.Nullable && a.Type != protocol.ArgString && a.Type != protocol.ArgObject {
		c.report(at, RuleNullableArgType, "allow-null on %s argument", a.Type)
	}

	if a.Enum == "" {
		return
	}
	if a.Type != protocol.ArgInt && a.Type != protocol.ArgUint {
		c.report(at, RuleEnumArgType, "enum %q on %s argument", a.Enum, a.Type)
		return
	}
	e := c.resolveEnum(iface, a)
	if e == nil {
		c.report(at, RuleUnresolvedEnum, "enum %q is not declared", a.Enum)
		return
	}
	if e.Bitfield && a.Type != protocol.ArgUint {
		c.report(at, RuleBitfieldArgType, "bitfield enum %q on %s argument", a.Enum, a.Type)
	}
}

// resolveEnum finds the enum an argument refers to, either on its own
// interface or qualified as iface.enum.
func (c *checker) resolveEnum(iface *protocol.Interface, a *protocol.Arg) *protocol.Enum {
	owner, name := a.EnumRef()
	target := iface
	if owner != "" {
		target = c.interfaces[owner]
		if target == nil {
			return nil
		}
	}
	return target.Enum(name)
}
