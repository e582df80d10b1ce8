// Package typecheck validates the concrete tree produced by internal/cst
// against the ref/source/config signatures in spec §4.2 and lowers it into
// a typed AST: a closed set of tagged-variant values rather than a class
// hierarchy, which consumers (extract, tests) tell apart by their Kind tag.
package typecheck

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// LiteralKind tags a Literal with which variant of the sum type it holds.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralBool
	LiteralList
	LiteralDict
)

// Literal is a typed AST value: String, Bool, List, or Dict. Only the
// field matching Kind is meaningful; this is the tagged-union shape the
// pack itself favors over Go interface hierarchies for closed value sets.
type Literal struct {
	Kind LiteralKind
	Str  string
	Bool bool
	List []Literal
	// Dict preserves insertion order, which a plain Go map cannot: spec §3
	// requires the order to be observable in error messages and extraction.
	Dict *orderedmap.OrderedMap[string, Literal]
}

// Kwarg is a single `name = value` binding inside a config() call, in
// source order.
type Kwarg struct {
	Name  string
	Value Literal
}

// CallKind tags which of the three allowlisted callees a TopCall holds.
type CallKind int

const (
	CallRef CallKind = iota
	CallSource
	CallConfig
)

// RefCall is `ref('a')` or `ref('a', 'b')`.
type RefCall struct {
	Arg1 string
	Arg2 *string
}

// SourceCall is `source(...)`, always normalized to its two named slots
// regardless of whether they arrived positionally or by keyword.
type SourceCall struct {
	SourceName string
	TableName  string
}

// ConfigCall is `config(...)`, a keyword-only call preserving source order.
type ConfigCall struct {
	Kwargs []Kwarg
}

// TopCall is one validated `{{ … }}` expression.
type TopCall struct {
	Kind   CallKind
	Ref    RefCall
	Source SourceCall
	Config ConfigCall
}

// Root is the typed AST for an entire source buffer: its top-level calls
// in source order. Text between expressions is not represented, per spec §4.2.
type Root struct {
	Calls []TopCall
}

// Failure is the single error type the core produces. It implements the
// standard error interface so callers can use errors.As/errors.Is the way
// the teacher's core.QueryResult/core.TransformResult carry a plain error
// field (core/types.go) rather than a bespoke failure convention.
type Failure struct {
	Msg string
}

func (f *Failure) Error() string {
	return f.Msg
}

// Stable, contract-required messages (spec §7). Every other failure
// message in this package is free-form diagnostic text.
const (
	MsgUnsupportedJinjaStatement = "jinja expressions are unsupported: {% syntax like this %}"
	MsgKeywordOrder              = "keyword arguments must all be at the end"
)
