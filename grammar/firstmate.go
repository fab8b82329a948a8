package grammar

import (
	"sort"
	"sync"

	"github.com/friedelschoen/tokenbuf/textmate"
	"github.com/friedelschoen/tokenbuf/tokenize"
)

// stackWrap adapts *textmate.StackItem to tokenize.RuleStack.
type stackWrap struct {
	item *textmate.StackItem
}

func (s stackWrap) Equal(other tokenize.RuleStack) bool {
	o, ok := other.(stackWrap)
	if !ok {
		return false
	}
	return s.item.Equal(o.item)
}

// FirstMate adapts a compiled textmate.Grammar to tokenize.Grammar, turning
// its overlapping Token spans into the interleaved TagStream the tokenizer
// core expects.
type FirstMate struct {
	registry *ScopeRegistry
	tm       *textmate.Grammar

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
}

// NewFirstMate wraps a compiled TextMate grammar.
func NewFirstMate(tm *textmate.Grammar) *FirstMate {
	return &FirstMate{
		registry:  NewScopeRegistry(),
		tm:        tm,
		listeners: make(map[int]func()),
	}
}

func (g *FirstMate) Name() string      { return g.tm.ScopeName }
func (g *FirstMate) ScopeName() string { return g.tm.ScopeName }

// OnDidUpdate subscribes to grammar reload notifications. Compiled grammars
// in this implementation are immutable once loaded, so the callback is
// retained but never invoked; Dispose still works as expected.
func (g *FirstMate) OnDidUpdate(cb func()) tokenize.Disposable {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = cb
	g.mu.Unlock()
	return tokenize.DisposableFunc(func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	})
}

func (g *FirstMate) ScopeForID(id int) (string, bool) { return g.registry.Name(id) }
func (g *FirstMate) StartIDForScope(name string) int  { return g.registry.StartID(name) }
func (g *FirstMate) EndIDForScope(name string) int    { return g.registry.EndID(name) }

// CommentSelector satisfies commentAware: any scope with a "comment"
// component anywhere in its dotted name.
func (g *FirstMate) CommentSelector() tokenize.Selector {
	return tokenize.ParseSelector(".comment")
}

// TokenizeLine runs the grammar's rule engine over text, carrying stack as
// the parse continuation from the previous line, and flattens the resulting
// (possibly nested) token spans into a TagStream.
func (g *FirstMate) TokenizeLine(text string, stack tokenize.RuleStack, isFirstLine bool) (tokenize.TagStream, tokenize.RuleStack) {
	var top *textmate.StackItem
	if w, ok := stack.(stackWrap); ok && w.item != nil {
		top = w.item
	} else {
		top = g.tm.StackItem()
	}

	var spans []*textmate.Token
	newTop, err := textmate.TokenizeLine(0, text, 0, len(text), top, func(t *textmate.Token) {
		spans = append(spans, t)
	})
	if err != nil {
		// The engine guarantees forward progress even on pattern errors by
		// construction; surface the line as one unscoped span rather than
		// losing it.
		return g.fallbackLine(text), stackWrap{item: top}
	}

	tags := g.flatten(spans, 0, len(text))
	return tags, stackWrap{item: newTop}
}

func (g *FirstMate) fallbackLine(text string) tokenize.TagStream {
	if len(text) == 0 {
		return nil
	}
	return tokenize.TagStream{len(text)}
}

// span node used to rebuild the proper-nesting tree textmate.TokenizeLine's
// push/pop and capture recursion always produces: every emitted span's
// [Start, Start+Length) range is either disjoint from or nested inside any
// other span that overlaps it.
type spanNode struct {
	tok      *textmate.Token
	children []*spanNode
}

func (g *FirstMate) flatten(spans []*textmate.Token, lineStart, lineEnd int) tokenize.TagStream {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Length > spans[j].Length
	})

	var roots []*spanNode
	var stack []*spanNode
	for _, t := range spans {
		n := &spanNode{tok: t}
		for len(stack) > 0 && t.Start >= stack[len(stack)-1].tok.End() {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
		}
		stack = append(stack, n)
	}

	var tags tokenize.TagStream
	g.emitSiblings(roots, lineStart, lineEnd, &tags)
	return tags
}

func (g *FirstMate) emitSiblings(nodes []*spanNode, from, to int, tags *tokenize.TagStream) {
	pos := from
	for _, n := range nodes {
		if n.tok.Start > pos {
			*tags = append(*tags, n.tok.Start-pos)
		}

		hasScope := n.tok.Scope != ""
		var endID int
		if hasScope {
			startID := g.registry.StartID(n.tok.Scope)
			endID = g.registry.EndID(n.tok.Scope)
			*tags = append(*tags, -startID)
		}

		end := n.tok.End()
		if len(n.children) > 0 {
			g.emitSiblings(n.children, n.tok.Start, end, tags)
		} else if end > n.tok.Start {
			*tags = append(*tags, end-n.tok.Start)
		}

		if hasScope {
			*tags = append(*tags, -endID)
		}
		pos = end
	}
	if to > pos {
		*tags = append(*tags, to-pos)
	}
}
