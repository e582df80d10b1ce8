package cst

import "bytes"

// Parser is a reusable handle over the recognizer, mirroring the
// construct-once/parse-many contract of a tree-sitter-style grammar
// runtime (spec §6, §5). It holds no per-call state, so a single Parser
// may be shared across goroutines the way the teacher's base.Provider
// reuses one *sitter.Parser per provider instance.
type Parser struct{}

// NewParser constructs a Parser handle.
func NewParser() *Parser {
	return &Parser{}
}

// Parse recognizes src and returns its concrete tree. Parse never fails
// catastrophically: malformed input surfaces as error/missing nodes that
// ErrorCount (and the type checker) detect.
func (p *Parser) Parse(src []byte) *Tree {
	return Parse(src)
}

// Parse is the package-level entry point used by tmplcheck.ExtractFromSource
// and by callers that already hold a byte buffer and want a tree without
// constructing a Parser handle.
func Parse(src []byte) *Tree {
	root := &Node{Kind: KindSourceFile, Start: 0, End: len(src)}

	pos := 0
	for pos < len(src) {
		openExpr := indexFrom(src, pos, "{{")
		openStmt := indexFrom(src, pos, "{%")

		open, isExpr := earliest(openExpr, openStmt)
		if open == -1 {
			root.Children = append(root.Children, &Node{Kind: KindText, Start: pos, End: len(src)})
			break
		}

		if open > pos {
			root.Children = append(root.Children, &Node{Kind: KindText, Start: pos, End: open})
		}

		if isExpr {
			close := findExprClose(src, open+2)
			if close == -1 {
				root.Children = append(root.Children, &Node{
					Kind: KindMissing, Start: open, End: len(src), IsMissing: true,
				})
				pos = len(src)
				break
			}
			root.Children = append(root.Children, parseJinjaExpr(src, open, close+2))
			pos = close + 2
			continue
		}

		close := indexFrom(src, open+2, "%}")
		if close == -1 {
			root.Children = append(root.Children, &Node{
				Kind: KindMissing, Start: open, End: len(src), IsMissing: true,
			})
			pos = len(src)
			break
		}
		root.Children = append(root.Children, &Node{Kind: KindJinjaStmt, Start: open, End: close + 2})
		pos = close + 2
	}

	return &Tree{root: root}
}

// parseJinjaExpr parses the inner grammar of a `{{ … }}` segment spanning
// [exprStart, exprEnd) (delimiters included) and returns the wrapping
// JinjaExpr node.
func parseJinjaExpr(src []byte, exprStart, exprEnd int) *Node {
	innerStart := exprStart + 2
	innerEnd := exprEnd - 2

	p := &parser{src: src, sc: newScanner(src, innerStart, innerEnd)}
	inner := p.parseArg()

	node := &Node{Kind: KindJinjaExpr, Start: exprStart, End: exprEnd, Children: []*Node{inner}}

	if !p.sc.atEOF() {
		bad := p.sc.next()
		extra := &Node{Kind: KindError, Start: bad.start, End: innerEnd, IsError: true}
		node.Children = append(node.Children, extra)
	}

	return node
}

// parser is the recursive-descent driver over a token stream bounded to a
// single `{{ … }}` expression's inner byte range.
type parser struct {
	src []byte
	sc  *scanner
}

// parseArg parses `IDENT = value` (a kwarg) or a bare value. This single
// production serves both the top-level `{{ <expr> }}` grammar and each
// element of a call's argument list, since both accept the same
// positional-or-keyword shape (spec §4.1).
func (p *parser) parseArg() *Node {
	save := p.sc.pos
	t := p.sc.peek()
	if t.kind == tokIdent {
		identTok := p.sc.next()
		if p.sc.peek().kind == tokEquals {
			p.sc.next()
			val := p.parseValue()
			return &Node{
				Kind:     KindKwarg,
				Start:    identTok.start,
				End:      val.End,
				Children: []*Node{identifierLeaf(identTok), val},
			}
		}
		p.sc.pos = save
	}
	return p.parseValue()
}

// parseValue parses a call, a literal, or a bare identifier/keyword. Calls
// are always accepted structurally here — the nested-call ban is enforced
// by the type checker, not the grammar (spec §4.2).
func (p *parser) parseValue() *Node {
	t := p.sc.peek()
	switch t.kind {
	case tokIdent:
		identTok := p.sc.next()
		if p.sc.peek().kind == tokLParen {
			return p.parseCall(identTok)
		}
		text := string(p.src[identTok.start:identTok.end])
		if text == "True" || text == "False" {
			return &Node{Kind: KindBool, Start: identTok.start, End: identTok.end}
		}
		return &Node{Kind: KindIdentifier, Start: identTok.start, End: identTok.end}
	case tokString:
		tok := p.sc.next()
		return &Node{Kind: KindString, Start: tok.start, End: tok.end}
	case tokLBracket:
		return p.parseList()
	case tokLBrace:
		return p.parseDict()
	case tokEOF:
		return &Node{Kind: KindMissing, Start: t.start, End: t.end, IsMissing: true}
	default:
		bad := p.sc.next()
		return &Node{Kind: KindError, Start: bad.start, End: bad.end, IsError: true}
	}
}

func (p *parser) parseCall(identTok token) *Node {
	p.sc.next() // consume '('
	argsStart := p.sc.pos
	args := p.parseArgList()
	closeTok, missing := p.expect(tokRParen)

	argListEnd := closeTok.end
	if missing {
		argListEnd = p.sc.limit
	}
	argList := &Node{Kind: KindArgList, Start: argsStart, End: argListEnd, Children: args, IsMissing: missing}

	call := &Node{
		Kind:     KindCall,
		Start:    identTok.start,
		End:      argListEnd,
		Children: []*Node{identifierLeaf(identTok), argList},
		IsMissing: missing,
	}
	return call
}

func (p *parser) parseArgList() []*Node {
	var args []*Node
	if p.sc.peek().kind == tokRParen || p.sc.peek().kind == tokEOF {
		return args
	}
	for {
		args = append(args, p.parseArg())
		if p.sc.peek().kind != tokComma {
			break
		}
		p.sc.next()
		if p.sc.peek().kind == tokRParen || p.sc.peek().kind == tokEOF {
			break
		}
	}
	return args
}

func (p *parser) parseList() *Node {
	open := p.sc.next() // consumes '['
	var elems []*Node
	if p.sc.peek().kind != tokRBracket && p.sc.peek().kind != tokEOF {
		for {
			elems = append(elems, p.parseValue())
			if p.sc.peek().kind != tokComma {
				break
			}
			p.sc.next()
			if p.sc.peek().kind == tokRBracket || p.sc.peek().kind == tokEOF {
				break
			}
		}
	}
	closeTok, missing := p.expect(tokRBracket)
	end := closeTok.end
	if missing {
		end = p.sc.limit
	}
	return &Node{Kind: KindList, Start: open.start, End: end, Children: elems, IsMissing: missing}
}

func (p *parser) parseDict() *Node {
	open := p.sc.next() // consumes '{'
	var pairs []*Node
	if p.sc.peek().kind != tokRBrace && p.sc.peek().kind != tokEOF {
		for {
			pairStart := p.sc.peek().start
			key := p.parseValue()
			_, missingColon := p.expect(tokColon)
			val := p.parseValue()
			pairs = append(pairs, &Node{
				Kind: KindPair, Start: pairStart, End: val.End,
				Children: []*Node{key, val}, IsMissing: missingColon,
			})
			if p.sc.peek().kind != tokComma {
				break
			}
			p.sc.next()
			if p.sc.peek().kind == tokRBrace || p.sc.peek().kind == tokEOF {
				break
			}
		}
	}
	closeTok, missing := p.expect(tokRBrace)
	end := closeTok.end
	if missing {
		end = p.sc.limit
	}
	return &Node{Kind: KindDict, Start: open.start, End: end, Children: pairs, IsMissing: missing}
}

func (p *parser) expect(kind tokenKind) (token, bool) {
	t := p.sc.peek()
	if t.kind == kind {
		p.sc.next()
		return t, false
	}
	return token{}, true
}

func identifierLeaf(tok token) *Node {
	return &Node{Kind: KindIdentifier, Start: tok.start, End: tok.end}
}

func indexFrom(src []byte, from int, sep string) int {
	if from >= len(src) {
		return -1
	}
	idx := bytes.Index(src[from:], []byte(sep))
	if idx == -1 {
		return -1
	}
	return from + idx
}

// findExprClose locates the "}}" that actually closes a jinja expression
// opened at from, tracking call/list/dict nesting depth (and skipping over
// quoted string contents) so that a dict value's own trailing "}}" -
// produced whenever a Dict's last element is itself a Dict, e.g.
// {{ config(a={'outer': {'inner': 'val'}}) }} - is never mistaken for the
// expression's closing delimiter. A flat substring search for "}}" cannot
// tell those two cases apart; this one walks the buffer byte by byte.
func findExprClose(src []byte, from int) int {
	depth := 0
	i := from
	for i < len(src) {
		b := src[i]
		if b == '\'' {
			i++
			for i < len(src) && src[i] != '\'' {
				i++
			}
			if i < len(src) {
				i++ // consume closing quote
			}
			continue
		}
		switch b {
		case '(', '[', '{':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '}':
			if depth == 0 {
				if i+1 < len(src) && src[i+1] == '}' {
					return i
				}
			} else {
				depth--
			}
		}
		i++
	}
	return -1
}

// earliest picks whichever of the two {{ / {% candidate offsets occurs
// first, reporting whether it is the jinja-expression delimiter.
func earliest(openExpr, openStmt int) (pos int, isExpr bool) {
	switch {
	case openExpr == -1 && openStmt == -1:
		return -1, false
	case openExpr == -1:
		return openStmt, false
	case openStmt == -1:
		return openExpr, true
	case openExpr <= openStmt:
		return openExpr, true
	default:
		return openStmt, false
	}
}
