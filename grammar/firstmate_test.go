package grammar

import (
	"reflect"
	"testing"

	"github.com/friedelschoen/tokenbuf/textmate"
	"github.com/friedelschoen/tokenbuf/tokenize"
)

func newTestFirstMate() *FirstMate {
	return &FirstMate{registry: NewScopeRegistry()}
}

// TestFlattenDisjointSpans covers two sibling scoped spans with a gap between
// and around them: plain length runs must appear for every uncovered byte.
func TestFlattenDisjointSpans(t *testing.T) {
	g := newTestFirstMate()
	spans := []*textmate.Token{
		{Scope: "keyword", Start: 2, Length: 3},
		{Scope: "string", Start: 8, Length: 2},
	}

	tags := g.flatten(spans, 0, 12)

	kwStart := g.registry.StartID("keyword")
	kwEnd := g.registry.EndID("keyword")
	strStart := g.registry.StartID("string")
	strEnd := g.registry.EndID("string")

	want := tokenize.TagStream{2, -kwStart, 3, -kwEnd, 3, -strStart, 2, -strEnd, 2}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
}

// TestFlattenNestedSpans covers a capture whose range is properly nested
// inside its enclosing rule's span (the shape evaluateRule always produces).
func TestFlattenNestedSpans(t *testing.T) {
	g := newTestFirstMate()
	spans := []*textmate.Token{
		{Scope: "string.quoted", Start: 0, Length: 10},
		{Scope: "constant.escape", Start: 3, Length: 2},
	}

	tags := g.flatten(spans, 0, 10)

	outerStart := g.registry.StartID("string.quoted")
	outerEnd := g.registry.EndID("string.quoted")
	innerStart := g.registry.StartID("constant.escape")
	innerEnd := g.registry.EndID("constant.escape")

	want := tokenize.TagStream{
		-outerStart,
		3,
		-innerStart, 2, -innerEnd,
		5,
		-outerEnd,
	}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
}

// TestFlattenUnscopedFillerSpan covers the filler token TokenizeLine emits
// (empty Scope) when nothing else matches: it contributes length only, no
// push/pop pair.
func TestFlattenUnscopedFillerSpan(t *testing.T) {
	g := newTestFirstMate()
	spans := []*textmate.Token{
		{Scope: "", Start: 0, Length: 1},
	}

	tags := g.flatten(spans, 0, 1)
	want := tokenize.TagStream{1}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
}

func TestStackWrapEqualRequiresSameConcreteType(t *testing.T) {
	a := stackWrap{item: nil}
	var other tokenize.RuleStack = fakeRuleStack{}
	if a.Equal(other) {
		t.Fatal("stackWrap must not equal a foreign RuleStack implementation")
	}
}

type fakeRuleStack struct{}

func (fakeRuleStack) Equal(tokenize.RuleStack) bool { return true }
