// Package tmplcheck is the restricted-Jinja static analyzer: it extracts
// ref/source/config metadata from SQL source text annotated with a tiny
// embedded template language, or reports a structured type-check failure.
//
// The package wires together three pure, single-threaded stages — see
// internal/cst (parser), internal/typecheck (type checker), and
// internal/extract (extractor) — none of which perform I/O or retain
// state across calls.
package tmplcheck

import (
	"github.com/oxhq/tmplcheck/internal/cst"
	"github.com/oxhq/tmplcheck/internal/extract"
	"github.com/oxhq/tmplcheck/internal/typecheck"
)

// Re-exported so callers of this package never need to import the
// internal packages directly.
type (
	// ConcreteNode is the parser's output node shape.
	ConcreteNode = cst.Node
	// Tree wraps a parsed ConcreteNode root.
	Tree = cst.Tree
	// TypedRoot is the type checker's validated output.
	TypedRoot = typecheck.Root
	// TypeCheckFailure carries a stable, human-readable diagnostic.
	TypeCheckFailure = typecheck.Failure
	// Extraction is the metadata record handed back on success.
	Extraction = extract.Extraction
)

// Parser is a reusable handle over the recognizer (spec §6). It holds no
// per-call state and may be shared across goroutines.
type Parser struct {
	inner *cst.Parser
}

// NewParser constructs a Parser handle.
func NewParser() *Parser {
	return &Parser{inner: cst.NewParser()}
}

// Parse recognizes src and returns its concrete tree.
func (p *Parser) Parse(src []byte) *Tree {
	return p.inner.Parse(src)
}

// ErrorCount performs a full DFS over node, counting every descendant
// (node included) marked as an error or missing node by the parser.
func ErrorCount(node *ConcreteNode) int {
	return cst.ErrorCount(node)
}

// TypeCheck validates a previously parsed tree and lowers it into a typed
// AST, or returns the first TypeCheckFailure encountered.
func TypeCheck(src []byte, root *ConcreteNode) (*TypedRoot, *TypeCheckFailure) {
	return typecheck.Check(src, root)
}

// ExtractFromSource runs the full pipeline — parse, type-check, extract —
// over src, returning either the Extraction or the TypeCheckFailure that
// stopped it.
func ExtractFromSource(src []byte) (Extraction, *TypeCheckFailure) {
	tree := cst.Parse(src)
	root, fail := typecheck.Check(src, tree.RootNode())
	if fail != nil {
		return Extraction{}, fail
	}
	return extract.FromRoot(root), nil
}
