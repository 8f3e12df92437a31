// Package validator checks a set of parsed protocol documents for internal
// consistency before any code is generated from them.
//
// Every violation is collected, not just the first. A set that fails
// validation must not be generated: inconsistent descriptions are exactly
// the ones that would make the two generated roles disagree on the wire.
package validator
