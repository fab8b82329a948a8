package grammar

import (
	"testing"

	"github.com/friedelschoen/tokenbuf/tokenize"
)

func TestNullDefaultsScopeName(t *testing.T) {
	n := NewNull("")
	if n.ScopeName() != "text.plain.null-grammar" {
		t.Fatalf("default scope = %q", n.ScopeName())
	}
}

func TestNullIsDetectable(t *testing.T) {
	var g tokenize.Grammar = NewNull("text.plain")
	if !g.(interface{ IsNullGrammar() bool }).IsNullGrammar() {
		t.Fatal("Null must report IsNullGrammar() true")
	}
}

func TestNullWrapsLineInRootScope(t *testing.T) {
	n := NewNull("text.plain")
	tags, stack := n.TokenizeLine("hello", nil, true)

	start := n.StartIDForScope("text.plain")
	end := n.EndIDForScope("text.plain")
	want := tokenize.TagStream{-start, 5, -end}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags = %v, want %v", tags, want)
		}
	}

	if _, ok := stack.(nullRuleStack); !ok {
		t.Fatalf("stack has type %T, want nullRuleStack", stack)
	}
}

func TestNullEmptyLineOmitsSpan(t *testing.T) {
	n := NewNull("text.plain")
	tags, _ := n.TokenizeLine("", nil, true)

	start := n.StartIDForScope("text.plain")
	end := n.EndIDForScope("text.plain")
	want := tokenize.TagStream{-start, -end}
	if len(tags) != len(want) || tags[0] != want[0] || tags[1] != want[1] {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
}

func TestNullRuleStackAlwaysFixedPoint(t *testing.T) {
	n := NewNull("text.plain")
	_, s1 := n.TokenizeLine("one", nil, true)
	_, s2 := n.TokenizeLine("two", s1, false)
	if !s1.Equal(s2) {
		t.Fatal("nullRuleStack must always equal itself across lines")
	}
}
