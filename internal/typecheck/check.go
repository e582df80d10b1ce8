package typecheck

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/oxhq/tmplcheck/internal/cst"
)

var forbiddenConfigKeys = map[string]bool{
	"pre_hook": true, "pre-hook": true,
	"post_hook": true, "post-hook": true,
}

// Check validates root (the concrete tree for src) and lowers it into a
// typed Root, or returns the first Failure encountered. Pure; first
// failure wins, no partial successes (spec §4.2, §7).
func Check(src []byte, root *cst.Node) (*Root, *Failure) {
	if cst.ErrorCount(root) > 0 {
		return nil, &Failure{Msg: "parse error: malformed template expression"}
	}

	for _, child := range root.Children {
		if child.Kind == cst.KindJinjaStmt {
			return nil, &Failure{Msg: MsgUnsupportedJinjaStatement}
		}
	}

	var calls []TopCall
	for _, child := range root.Children {
		if child.Kind != cst.KindJinjaExpr {
			continue
		}
		call, err := checkTopLevel(src, child.Child(0))
		if err != nil {
			return nil, err
		}
		calls = append(calls, *call)
	}

	return &Root{Calls: calls}, nil
}

func checkTopLevel(src []byte, node *cst.Node) (*TopCall, *Failure) {
	if node == nil || node.Kind != cst.KindCall {
		return nil, &Failure{Msg: "top-level expression must be a single function call"}
	}

	callee := node.Child(0).Text(src)
	args := node.Child(1).Children

	if err := checkOrdering(args); err != nil {
		return nil, err
	}

	switch callee {
	case "ref":
		return checkRef(src, args)
	case "source":
		return checkSource(src, args)
	case "config":
		return checkConfig(src, args)
	default:
		return nil, &Failure{Msg: fmt.Sprintf("unknown template function %q", callee)}
	}
}

// checkOrdering enforces spec §4.2's ordering rule: within one call, every
// keyword argument must come after every positional argument.
func checkOrdering(args []*cst.Node) *Failure {
	seenKwarg := false
	for _, a := range args {
		if a.Kind == cst.KindKwarg {
			seenKwarg = true
			continue
		}
		if seenKwarg {
			return &Failure{Msg: MsgKeywordOrder}
		}
	}
	return nil
}

func checkRef(src []byte, args []*cst.Node) (*TopCall, *Failure) {
	if len(args) < 1 || len(args) > 2 {
		return nil, &Failure{Msg: "ref() requires 1 or 2 positional arguments"}
	}

	strs := make([]string, 0, len(args))
	for _, a := range args {
		if a.Kind == cst.KindKwarg {
			return nil, &Failure{Msg: "ref() does not accept keyword arguments"}
		}
		if a.Kind != cst.KindString {
			return nil, &Failure{Msg: "ref() arguments must be string literals"}
		}
		strs = append(strs, stringValue(src, a))
	}

	call := &TopCall{Kind: CallRef, Ref: RefCall{Arg1: strs[0]}}
	if len(strs) == 2 {
		call.Ref.Arg2 = &strs[1]
	}
	return call, nil
}

// checkSource binds up to 2 raw arguments (positional and/or keyword) onto
// the two named slots source_name/table_name, per spec §4.2's "Note on
// source". Ordering has already been validated by checkOrdering, so every
// positional argument here precedes every keyword argument.
func checkSource(src []byte, args []*cst.Node) (*TopCall, *Failure) {
	if len(args) > 2 {
		return nil, &Failure{Msg: "source() accepts at most 2 arguments"}
	}

	var slots [2]*string
	positional := 0

	for _, a := range args {
		if a.Kind == cst.KindKwarg {
			name := a.Child(0).Text(src)
			valNode := a.Child(1)

			var slot int
			switch name {
			case "source_name":
				slot = 0
			case "table_name":
				slot = 1
			default:
				return nil, &Failure{Msg: fmt.Sprintf("source() does not accept keyword %q", name)}
			}
			if valNode.Kind != cst.KindString {
				return nil, &Failure{Msg: "source() arguments must be string literals"}
			}
			if slots[slot] != nil {
				return nil, &Failure{Msg: "source() argument bound more than once"}
			}
			v := stringValue(src, valNode)
			slots[slot] = &v
			continue
		}

		if positional > 1 {
			return nil, &Failure{Msg: "source() accepts at most 2 arguments"}
		}
		if a.Kind != cst.KindString {
			return nil, &Failure{Msg: "source() arguments must be string literals"}
		}
		if slots[positional] != nil {
			return nil, &Failure{Msg: "source() argument bound more than once"}
		}
		v := stringValue(src, a)
		slots[positional] = &v
		positional++
	}

	if slots[0] == nil || slots[1] == nil {
		return nil, &Failure{Msg: "source() requires both source_name and table_name"}
	}

	return &TopCall{Kind: CallSource, Source: SourceCall{SourceName: *slots[0], TableName: *slots[1]}}, nil
}

func checkConfig(src []byte, args []*cst.Node) (*TopCall, *Failure) {
	kwargs := make([]Kwarg, 0, len(args))
	for _, a := range args {
		if a.Kind != cst.KindKwarg {
			return nil, &Failure{Msg: "config() only accepts keyword arguments"}
		}
		name := a.Child(0).Text(src)
		if forbiddenConfigKeys[name] {
			return nil, &Failure{Msg: fmt.Sprintf("config() forbids the %q keyword", name)}
		}
		val, err := toLiteral(src, a.Child(1))
		if err != nil {
			return nil, err
		}
		kwargs = append(kwargs, Kwarg{Name: name, Value: val})
	}
	return &TopCall{Kind: CallConfig, Config: ConfigCall{Kwargs: kwargs}}, nil
}

// toLiteral recursively converts a concrete value node into a typed
// Literal, rejecting nested calls and any node that is not one of
// String/Bool/List/Dict at any depth (spec §4.2 "Literal value typing").
func toLiteral(src []byte, node *cst.Node) (Literal, *Failure) {
	switch node.Kind {
	case cst.KindString:
		return Literal{Kind: LiteralString, Str: stringValue(src, node)}, nil

	case cst.KindBool:
		return Literal{Kind: LiteralBool, Bool: node.Text(src) == "True"}, nil

	case cst.KindList:
		items := make([]Literal, 0, len(node.Children))
		for _, c := range node.Children {
			v, err := toLiteral(src, c)
			if err != nil {
				return Literal{}, err
			}
			items = append(items, v)
		}
		return Literal{Kind: LiteralList, List: items}, nil

	case cst.KindDict:
		dict := orderedmap.New[string, Literal]()
		for _, pair := range node.Children {
			keyNode, valNode := pair.Child(0), pair.Child(1)
			if keyNode.Kind != cst.KindString {
				return Literal{}, &Failure{Msg: "dict keys must be string literals"}
			}
			val, err := toLiteral(src, valNode)
			if err != nil {
				return Literal{}, err
			}
			dict.Set(stringValue(src, keyNode), val)
		}
		return Literal{Kind: LiteralDict, Dict: dict}, nil

	case cst.KindCall:
		return Literal{}, &Failure{Msg: "nested template calls are not allowed"}

	default:
		return Literal{}, &Failure{Msg: fmt.Sprintf("unsupported literal value of kind %q", node.Kind)}
	}
}

// stringValue strips the surrounding single quotes from a KindString span.
func stringValue(src []byte, node *cst.Node) string {
	text := node.Text(src)
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}
