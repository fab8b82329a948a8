package tokenize

import "strings"

// fakeBuffer is a minimal, directly-mutable TextBuffer for exercising the
// core without pulling in the textbuf package (which itself depends on
// tokenize, and would make this an import cycle in a test).
type fakeBuffer struct {
	lines []string
	alive bool
}

func newFakeBuffer(lines ...string) *fakeBuffer {
	return &fakeBuffer{lines: lines, alive: true}
}

func (b *fakeBuffer) LineCount() int { return len(b.lines) }
func (b *fakeBuffer) LastRow() int   { return len(b.lines) - 1 }

func (b *fakeBuffer) LineForRow(row int) string {
	if row < 0 || row >= len(b.lines) {
		return ""
	}
	return b.lines[row]
}

func (b *fakeBuffer) LineEndingForRow(row int) string {
	if row < 0 || row >= len(b.lines)-1 {
		return ""
	}
	return "\n"
}

func (b *fakeBuffer) IsRowBlank(row int) bool {
	return strings.TrimSpace(b.LineForRow(row)) == ""
}

func (b *fakeBuffer) NextNonBlankRow(row int) (int, bool) {
	for r := row + 1; r < len(b.lines); r++ {
		if strings.TrimSpace(b.lines[r]) != "" {
			return r, true
		}
	}
	return 0, false
}

func (b *fakeBuffer) PreviousNonBlankRow(row int) (int, bool) {
	for r := row - 1; r >= 0; r-- {
		if strings.TrimSpace(b.lines[r]) != "" {
			return r, true
		}
	}
	return 0, false
}

func (b *fakeBuffer) GetTextInRange(r Range) string {
	if r.Start.Row == r.End.Row {
		line := b.LineForRow(r.Start.Row)
		return line[r.Start.Column:r.End.Column]
	}
	var sb strings.Builder
	sb.WriteString(b.LineForRow(r.Start.Row)[r.Start.Column:])
	for row := r.Start.Row + 1; row < r.End.Row; row++ {
		sb.WriteByte('\n')
		sb.WriteString(b.lines[row])
	}
	sb.WriteByte('\n')
	sb.WriteString(b.LineForRow(r.End.Row)[:r.End.Column])
	return sb.String()
}

func (b *fakeBuffer) ClipPosition(p Position) Position {
	row := p.Row
	if row < 0 {
		row = 0
	}
	if row >= len(b.lines) {
		row = len(b.lines) - 1
	}
	col := p.Column
	if col < 0 {
		col = 0
	}
	if col > len(b.lines[row]) {
		col = len(b.lines[row])
	}
	return Position{Row: row, Column: col}
}

func (b *fakeBuffer) Path() string { return "fake.txt" }
func (b *fakeBuffer) ID() string   { return "fake" }

func (b *fakeBuffer) GetText() string { return strings.Join(b.lines, "\n") }

func (b *fakeBuffer) ChangeCount() int { return 0 }
func (b *fakeBuffer) IsAlive() bool    { return b.alive }

func (b *fakeBuffer) OnDidChange(cb func(EditEvent)) Disposable {
	return DisposableFunc(nil)
}

// replaceRows mutates the line slice in place, mirroring what a real
// SetTextInRange would do to backing storage before notifying subscribers.
func (b *fakeBuffer) replaceRows(start, oldCount int, newLines ...string) {
	tail := append([]string(nil), b.lines[start+oldCount:]...)
	out := append([]string(nil), b.lines[:start]...)
	out = append(out, newLines...)
	out = append(out, tail...)
	b.lines = out
}

var _ TextBuffer = (*fakeBuffer)(nil)

// countingScheduler runs fn synchronously but counts how many times Defer
// was invoked, to assert on chunk count without depending on goroutine timing.
type countingScheduler struct {
	count int
}

func (s *countingScheduler) Defer(fn func()) {
	s.count++
	fn()
}

// constStack is a RuleStack that always equals itself; useful for grammars
// whose continuation never varies in a way the test cares about.
type constStack struct{ v int }

func (s constStack) Equal(other RuleStack) bool {
	o, ok := other.(constStack)
	return ok && o.v == s.v
}

// plainGrammar emits the whole line as a single unscoped span and never
// changes its rule-stack: a stand-in for "no interesting syntax".
type plainGrammar struct{}

func (plainGrammar) Name() string      { return "Plain" }
func (plainGrammar) ScopeName() string { return "text.plain" }

func (plainGrammar) TokenizeLine(text string, stack RuleStack, isFirstLine bool) (TagStream, RuleStack) {
	var tags TagStream
	if len(text) > 0 {
		tags = TagStream{len(text)}
	}
	return tags, constStack{}
}

func (plainGrammar) ScopeForID(id int) (string, bool)  { return "", false }
func (plainGrammar) StartIDForScope(name string) int   { return 1 }
func (plainGrammar) EndIDForScope(name string) int     { return 2 }
func (plainGrammar) OnDidUpdate(cb func()) Disposable  { return DisposableFunc(nil) }

// nullTestGrammar stands in for the Null Grammar fast path: it always
// reports IsNullGrammar() true, so TokenizedBuffer never schedules
// background work for it (spec.md §4.5.1, Scenario A).
type nullTestGrammar struct{}

func (nullTestGrammar) Name() string      { return "Null" }
func (nullTestGrammar) ScopeName() string { return "text.plain.null-grammar" }

func (nullTestGrammar) TokenizeLine(text string, stack RuleStack, isFirstLine bool) (TagStream, RuleStack) {
	var tags TagStream
	if len(text) > 0 {
		tags = TagStream{len(text)}
	}
	return tags, constStack{}
}

func (nullTestGrammar) ScopeForID(id int) (string, bool) { return "", false }
func (nullTestGrammar) StartIDForScope(name string) int  { return 1 }
func (nullTestGrammar) EndIDForScope(name string) int    { return 2 }
func (nullTestGrammar) OnDidUpdate(cb func()) Disposable { return DisposableFunc(nil) }
func (nullTestGrammar) IsNullGrammar() bool              { return true }

// commentRuleStack / commentGrammar model a "/* ... */" multi-line comment
// scope, for exercising spill propagation (Scenario B).
type commentRuleStack struct{ inComment bool }

func (s commentRuleStack) Equal(other RuleStack) bool {
	o, ok := other.(commentRuleStack)
	return ok && o.inComment == s.inComment
}

const (
	commentStartID = 1
	commentEndID   = 2
)

type commentGrammar struct{}

func (commentGrammar) Name() string      { return "Comment" }
func (commentGrammar) ScopeName() string { return "source.comment-test" }

func (commentGrammar) TokenizeLine(text string, stack RuleStack, isFirstLine bool) (TagStream, RuleStack) {
	inComment := false
	if cs, ok := stack.(commentRuleStack); ok {
		inComment = cs.inComment
	}
	trimmed := strings.TrimSpace(text)

	var tags TagStream
	switch {
	case !inComment && trimmed == "/*":
		tags = TagStream{-commentStartID}
		if len(text) > 0 {
			tags = append(tags, len(text))
		}
		return tags, commentRuleStack{inComment: true}
	case inComment && trimmed == "*/":
		if len(text) > 0 {
			tags = append(tags, len(text))
		}
		tags = append(tags, -commentEndID)
		return tags, commentRuleStack{inComment: false}
	default:
		if len(text) > 0 {
			tags = TagStream{len(text)}
		}
		return tags, commentRuleStack{inComment: inComment}
	}
}

func (commentGrammar) ScopeForID(id int) (string, bool) {
	if id == commentStartID {
		return "comment.block.test", true
	}
	return "", false
}
func (commentGrammar) StartIDForScope(name string) int { return commentStartID }
func (commentGrammar) EndIDForScope(name string) int   { return commentEndID }
func (commentGrammar) OnDidUpdate(cb func()) Disposable { return DisposableFunc(nil) }
