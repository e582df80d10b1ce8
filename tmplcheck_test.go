package tmplcheck

import "testing"

func TestExtractFromSource_Scenario1_MultipleRefs(t *testing.T) {
	src := "{{ ref('my_table') }} {{ ref('other_table')}}"
	ext, fail := ExtractFromSource([]byte(src))
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if len(ext.Refs) != 2 || ext.Refs[0][0] != "my_table" || ext.Refs[1][0] != "other_table" {
		t.Errorf("unexpected refs: %#v", ext.Refs)
	}
	if ext.Sources.Size() != 0 || len(ext.Configs) != 0 {
		t.Errorf("expected no sources/configs, got %#v", ext)
	}
	if ext.PythonJinja {
		t.Errorf("python_jinja must be false")
	}
}

func TestExtractFromSource_Scenario2_SourceSet(t *testing.T) {
	src := "{{ source('package', 'table') }} {{ source('x', 'y') }}"
	ext, fail := ExtractFromSource([]byte(src))
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if ext.Sources.Size() != 2 {
		t.Errorf("expected 2 distinct sources, got %d", ext.Sources.Size())
	}
}

func TestExtractFromSource_Scenario5_JinjaStatementFailureMessage(t *testing.T) {
	_, fail := ExtractFromSource([]byte("{% expression %}"))
	if fail == nil {
		t.Fatal("expected a failure")
	}
	const want = "jinja expressions are unsupported: {% syntax like this %}"
	if fail.Msg != want {
		t.Errorf("expected message %q, got %q", want, fail.Msg)
	}
}

func TestExtractFromSource_Scenario6_KeywordOrderFailureMessage(t *testing.T) {
	_, fail := ExtractFromSource([]byte("{{ source(source_name='kwarg', 'positional') }}"))
	if fail == nil {
		t.Fatal("expected a failure")
	}
	const want = "keyword arguments must all be at the end"
	if fail.Msg != want {
		t.Errorf("expected message %q, got %q", want, fail.Msg)
	}
}

func TestExtractFromSource_RobustnessNoDelimitersIsEmpty(t *testing.T) {
	ext, fail := ExtractFromSource([]byte("select * from widgets where id = 1"))
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if len(ext.Refs) != 0 || ext.Sources.Size() != 0 || len(ext.Configs) != 0 {
		t.Errorf("expected empty extraction, got %#v", ext)
	}
}

func TestExtractFromSource_NestedCallRejected(t *testing.T) {
	cases := []string{
		"{{ config(x=ref('x')) }}",
		"{{ [ref('x')] }}",
		"{{ config(key=[ref('x')]) }}",
		"{{ config(key={'k': ref('x')}) }}",
	}
	for _, src := range cases {
		if _, fail := ExtractFromSource([]byte(src)); fail == nil {
			t.Errorf("expected %q to fail type-checking (nested call)", src)
		}
	}
}

func TestExtractFromSource_AcceptSet(t *testing.T) {
	cases := []string{
		"select * from {{ ref('my_table') }}",
		"{{ config(key='value') }}",
		"{{ source('a', 'b') }}",
		"{{ ref('x') }} {{ ref('y') }}",
		"{{ config(key=[{'k':['v', {'x': 'y'}]}, ['a', 'b', 'c']]) }}",
		"{{ source(source_name='src', table_name='table') }}",
		"{{ source('src', 'table') }}",
		"{{ source('src', table_name='table') }}",
		"{{ ref('two', 'args') }}",
		"{{ ref('one arg') }}",
	}
	for _, src := range cases {
		if _, fail := ExtractFromSource([]byte(src)); fail != nil {
			t.Errorf("expected %q to type-check, got failure: %v", src, fail)
		}
	}
}

func TestExtractFromSource_RejectSet(t *testing.T) {
	cases := []string{
		"{{ reff('my_table') }}",
		"{{ REF('a','b') }}",
		"{{ fn(key='value') }}",
		"{{ config('value') }}",
		"{{ config(True) }}",
		"{{ source(source_name='src', BAD_NAME='table') }}",
		"{{ source('one') }}",
		"{{ source('a','b','c') }}",
		"{{ source(True, False) }}",
		"{{ ref() }}",
		"{{ ref('a','b','c') }}",
		"{{ ref(kwarg='x') }}",
		"{{ ref(['list']) }}",
		"{{ [ref('x')] }}",
		"{{ config(x=ref('x')) }}",
		"{{ config(pre_hook='x') }}",
		"{{ config(pre-hook='x') }}",
		"{{ config(post_hook='x') }}",
		"{{ config(post-hook='x') }}",
		"{% config(x='y') %}",
		"stuff {{ ref('s') }} {% tag %}",
		"{{ kwarg='value' }}",
		"{{ ref(",
		"{{ True",
		"{{",
		"{{ 'str' ",
		"{{ source(source_name='src', 'table') }}",
	}
	for _, src := range cases {
		if _, fail := ExtractFromSource([]byte(src)); fail == nil {
			t.Errorf("expected %q to fail type-checking", src)
		}
	}
}

func TestTypeCheck_Idempotent(t *testing.T) {
	src := []byte("{{ source('package', 'table') }} {{ ref('x') }} {{ config(k='v', x=True) }}")
	parser := NewParser()
	tree := parser.Parse(src)

	root1, fail1 := TypeCheck(src, tree.RootNode())
	root2, fail2 := TypeCheck(src, tree.RootNode())

	if fail1 != nil || fail2 != nil {
		t.Fatalf("unexpected failures: %v / %v", fail1, fail2)
	}
	if len(root1.Calls) != len(root2.Calls) {
		t.Fatalf("expected deterministic results across repeated calls")
	}
	for i := range root1.Calls {
		if root1.Calls[i].Kind != root2.Calls[i].Kind {
			t.Errorf("call %d kind mismatch: %v vs %v", i, root1.Calls[i].Kind, root2.Calls[i].Kind)
		}
	}
}

func TestErrorCount_ReflectsUnbalancedDelimiters(t *testing.T) {
	parser := NewParser()
	tree := parser.Parse([]byte("{{ ref("))
	if ErrorCount(tree.RootNode()) == 0 {
		t.Error("expected a nonzero error count for unbalanced delimiters")
	}
}
