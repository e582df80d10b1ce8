// Package extract lowers a validated typed AST (internal/typecheck.Root)
// into the Extraction metadata record consumed by callers: refs, sources,
// configs, and the python_jinja compatibility flag (spec §4.3).
package extract

import (
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/samber/lo"

	"github.com/oxhq/tmplcheck/internal/typecheck"
)

// sourceKey is the composite element stored in the sources set.
type sourceKey struct {
	Name, Table string
}

func compareSourceKeys(a, b any) int {
	sa, sb := a.(sourceKey), b.(sourceKey)
	if sa.Name != sb.Name {
		return utils.StringComparator(sa.Name, sb.Name)
	}
	return utils.StringComparator(sa.Table, sb.Table)
}

// Extraction is the metadata record handed back to callers.
type Extraction struct {
	// Refs is ordered, duplicates preserved: source order of every ref()
	// call, each as a 1- or 2-element slice.
	Refs [][]string
	// Sources is a deduplicating set of (source_name, table_name) pairs;
	// order is not meaningful.
	Sources *treeset.Set
	// Configs is ordered, duplicates preserved: every config() keyword in
	// source order, across every config() call.
	Configs []ConfigEntry
	// PythonJinja is always false for this strict core; reserved so
	// callers can distinguish this extractor from a permissive front-end
	// that tolerates full Jinja/Python syntax.
	PythonJinja bool
}

// ConfigEntry is one (name, value) pair extracted from a config() call.
type ConfigEntry struct {
	Name  string
	Value typecheck.Literal
}

// SourcePairs returns the extracted sources as plain (name, table) pairs,
// for callers (and tests) that would rather not depend on the gods/treeset
// element type directly.
func (e Extraction) SourcePairs() [][2]string {
	values := e.Sources.Values()
	pairs := make([][2]string, 0, len(values))
	for _, v := range values {
		k := v.(sourceKey)
		pairs = append(pairs, [2]string{k.Name, k.Table})
	}
	return pairs
}

// FromRoot lowers a validated typed AST into an Extraction. Infallible: a
// type-checked Root cannot contain a call shape the extractor rejects.
func FromRoot(root *typecheck.Root) Extraction {
	sources := treeset.NewWith(compareSourceKeys)

	refs := lo.FilterMap(root.Calls, func(call typecheck.TopCall, _ int) ([]string, bool) {
		if call.Kind != typecheck.CallRef {
			return nil, false
		}
		if call.Ref.Arg2 != nil {
			return []string{call.Ref.Arg1, *call.Ref.Arg2}, true
		}
		return []string{call.Ref.Arg1}, true
	})

	var configs []ConfigEntry
	for _, call := range root.Calls {
		switch call.Kind {
		case typecheck.CallSource:
			sources.Add(sourceKey{Name: call.Source.SourceName, Table: call.Source.TableName})
		case typecheck.CallConfig:
			for _, kw := range call.Config.Kwargs {
				configs = append(configs, ConfigEntry{Name: kw.Name, Value: kw.Value})
			}
		}
	}

	return Extraction{
		Refs:        refs,
		Sources:     sources,
		Configs:     configs,
		PythonJinja: false,
	}
}
