package lib

import "fmt"

// Value is the tagged variant described in spec.md §3: a VarArg's value is
// either a plain literal, a reference to a sibling value in the same list,
// a reference to a value supplied externally at walk time, or a reference
// into a named Type's enumeration. It is modeled as a closed interface
// instead of a tagged struct, so each variant carries only the fields it
// needs and callers switch on concrete type rather than a discriminant
// field (spec.md §9 "Dynamic dispatch").
type Value interface {
	// Requirements attached directly to this value (spec.md §3 Value).
	Requirements() []Requirement
	isValue()
}

type baseValue struct {
	reqs []Requirement
}

func (b baseValue) Requirements() []Requirement { return b.reqs }

// PlainValue is a literal string value.
type PlainValue struct {
	baseValue
	Literal string
}

func (PlainValue) isValue() {}

// NewPlainValue builds a PlainValue with optional attached requirements.
func NewPlainValue(literal string, reqs ...Requirement) PlainValue {
	return PlainValue{baseValue: baseValue{reqs: reqs}, Literal: literal}
}

// RefValue points at another value within the same VarArg's value list, by
// index rather than by pointer (spec.md §9 "Cyclic references" — a Ref must
// be a lookup, not an owning back-pointer).
type RefValue struct {
	baseValue
	Index int
}

func (RefValue) isValue() {}

// ExternalValue names a value supplied by the walker at run time (e.g. an
// argument bound from the command line or from a prologue's published
// requirement), resolved by name rather than carried inline.
type ExternalValue struct {
	baseValue
	Name string
}

func (ExternalValue) isValue() {}

// TypeRefValue points at a named Type's enumeration; resolving it yields
// every value the Type enumerates (spec.md §3 Type).
type TypeRefValue struct {
	baseValue
	TypeName string
}

func (TypeRefValue) isValue() {}

// Literal returns the plain string this value denotes once external/ref
// indirection has been resolved by the caller; it returns an error for a
// Value whose Literal is only meaningful after resolution (RefValue,
// ExternalValue, TypeRefValue), since those require a resolution context
// (spec.md §9).
func Literal(v Value) (string, error) {
	switch t := v.(type) {
	case PlainValue:
		return t.Literal, nil
	default:
		return "", fmt.Errorf("value %T has no direct literal, must be resolved first", v)
	}
}
