// Package reqeval evaluates RequirementExpression trees (spec.md §4.6)
// against the sticky/test/argument requirement sets active at one iteration.
package reqeval

import "go.te.io/tescenario/lib"

// ArgBinding is one (arg-name, arg-value, per-arg reqs) triple the evaluator
// consults to resolve indirect (ref=arg-name) requirements and per-argument
// requirement sets.
type ArgBinding struct {
	Name  string
	Value string
	Reqs  map[string]bool
}

// Context carries everything Eval needs to resolve a requirement by id:
// the sticky set collected on descent, the set attached to the current
// test, and the current iteration's argument bindings.
type Context struct {
	Sticky map[string]bool
	Test   map[string]bool
	Args   []ArgBinding
}

// has reports whether name is present in sticky, test, or any arg-attached
// requirement set (spec.md §4.6 "Value(v) matches iff...").
func (c *Context) has(name string) bool {
	if c.Sticky[name] {
		return true
	}
	if c.Test[name] {
		return true
	}
	for _, a := range c.Args {
		if a.Reqs[name] {
			return true
		}
	}
	return false
}

// argValue resolves ref=arg-name indirection to the current value of the
// named argument, or ("", false) if no such argument is bound.
func (c *Context) argValue(argName string) (string, bool) {
	for _, a := range c.Args {
		if a.Name == argName {
			return a.Value, true
		}
	}
	return "", false
}

// Eval evaluates expr against c and returns (match, force): force
// distinguishes a definite no-match from a probabilistic miss, governing
// whether ancestor sessions can still be visited (spec.md §4.6).
func Eval(expr lib.ReqExpr, c *Context) (match bool, force bool) {
	switch e := expr.(type) {
	case lib.ReqValue:
		return evalValue(e, c)
	case lib.ReqNot:
		m, _ := Eval(e.Expr, c)
		// A successful Not (i.e. the operand did not match) sets force=true.
		return !m, !m
	case lib.ReqAnd:
		lm, lf := Eval(e.L, c)
		if !lm && lf {
			// Short-circuit: a's result is false and force=true.
			return false, true
		}
		rm, rf := Eval(e.R, c)
		return lm && rm, lf || rf
	case lib.ReqOr:
		lm, lf := Eval(e.L, c)
		rm, rf := Eval(e.R, c)
		match = lm || rm
		switch {
		case lm:
			force = lf
		case rm:
			force = rf
		default:
			force = lf || rf
		}
		return match, force
	default:
		return false, false
	}
}

// evalValue resolves a leaf ReqValue, treating its Name as a requirement
// id, or — when the id is of the form "ref=arg-name" — as an indirect
// lookup of the bound value of that argument.
func evalValue(v lib.ReqValue, c *Context) (bool, bool) {
	const refPrefix = "ref="
	name := v.Name
	if len(name) > len(refPrefix) && name[:len(refPrefix)] == refPrefix {
		argName := name[len(refPrefix):]
		val, ok := c.argValue(argName)
		if !ok {
			return false, false
		}
		name = val
	}
	return c.has(name), false
}
