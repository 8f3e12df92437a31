package validator

import (
	"fmt"
	"strings"
)

// Rule names a consistency check.
type Rule string

const (
	RuleBadName             Rule = "bad-name"
	RuleDuplicateInterface  Rule = "duplicate-interface"
	RuleDuplicateMessage    Rule = "duplicate-message"
	RuleDuplicateArg        Rule = "duplicate-arg"
	RuleDuplicateEnum       Rule = "duplicate-enum"
	RuleDuplicateEntry      Rule = "duplicate-entry"
	RuleBadVersion          Rule = "bad-version"
	RuleSinceOutOfRange     Rule = "since-out-of-range"
	RuleSinceDecreasing     Rule = "since-decreasing"
	RuleDeprecatedSince     Rule = "bad-deprecated-since"
	RuleUnresolvedEnum      Rule = "unresolved-enum"
	RuleEnumArgType         Rule = "enum-arg-type"
	RuleBitfieldArgType     Rule = "bitfield-arg-type"
	RuleUnresolvedInterface Rule = "unresolved-interface"
	RuleInterfaceArgType    Rule = "interface-arg-type"
	RuleNullableArgType     Rule = "nullable-arg-type"
	RuleMultipleDestructors Rule = "multiple-destructors"
	RuleMultipleNewIDs      Rule = "multiple-new-ids"
)

// Error is one violation. The location fields are empty where they do not
// apply.
type Error struct {
	Protocol  string
	Interface string
	// Direction is "request" or "event" when Message is set.
	Direction string
	Message   string
	Arg       string
	Enum      string
	Entry     string
	Rule      Rule
	Detail    string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Protocol)
	loc := func(kind, name string) {
		if name != "" {
			fmt.Fprintf(&b, "/%s[%s]", kind, name)
		}
	}
	loc("interface", e.Interface)
	loc(e.Direction, e.Message)
	loc("arg", e.Arg)
	loc("enum", e.Enum)
	loc("entry", e.Entry)
	fmt.Fprintf(&b, ": %s: %s", e.Rule, e.Detail)
	return b.String()
}

// Errors collects every violation found in one compilation unit.
type Errors struct {
	List []*Error
}

// Error implements the error interface
func (e *Errors) Error() string {
	if len(e.List) == 1 {
		return "validation failed: " + e.List[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:", len(e.List))
	for _, err := range e.List {
		b.WriteString("\n\t")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e *Errors) Unwrap() []error {
	out := make([]error, len(e.List))
	for i, err := range e.List {
		out[i] = err
	}
	return out
}

// Find returns the violations of rule.
func (e *Errors) Find(rule Rule) []*Error {
	var out []*Error
	for _, err := range e.List {
		if err.Rule == rule {
			out = append(out, err)
		}
	}
	return out
}
