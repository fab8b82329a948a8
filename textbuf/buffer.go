// Package textbuf is a minimal, line-oriented TextBuffer used to exercise
// and demonstrate the tokenizer: a real editor buffer (rope, piece table,
// whatever it uses internally) is out of scope here, only the
// tokenize.TextBuffer contract it must satisfy.
package textbuf

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/friedelschoen/tokenbuf/tokenize"
)

// Buffer is a []string-backed TextBuffer. All methods are safe for
// concurrent use.
type Buffer struct {
	mu    sync.RWMutex
	path  string
	id    string
	lines []string

	changeCount int
	alive       bool

	nextID    int
	listeners map[int]func(tokenize.EditEvent)
}

// New returns a Buffer seeded with text, split on "\n".
func New(path, text string) *Buffer {
	b := &Buffer{
		path:      path,
		id:        uuid.NewString(),
		alive:     true,
		listeners: make(map[int]func(tokenize.EditEvent)),
	}
	b.lines = splitLines(text)
	return b
}

func splitLines(text string) []string {
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

func (b *Buffer) LastRow() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines) - 1
}

func (b *Buffer) LineForRow(row int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines) {
		return ""
	}
	return b.lines[row]
}

// LineEndingForRow reports "\n" for every row but the last, which has no
// line ending; this buffer does not preserve per-line terminators.
func (b *Buffer) LineEndingForRow(row int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines)-1 {
		return ""
	}
	return "\n"
}

func (b *Buffer) IsRowBlank(row int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines) {
		return true
	}
	return strings.TrimSpace(b.lines[row]) == ""
}

func (b *Buffer) NextNonBlankRow(row int) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for r := row + 1; r < len(b.lines); r++ {
		if strings.TrimSpace(b.lines[r]) != "" {
			return r, true
		}
	}
	return 0, false
}

func (b *Buffer) PreviousNonBlankRow(row int) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for r := row - 1; r >= 0; r-- {
		if strings.TrimSpace(b.lines[r]) != "" {
			return r, true
		}
	}
	return 0, false
}

// GetTextInRange joins the lines spanned by r, slicing the first and last
// line to their respective columns.
func (b *Buffer) GetTextInRange(r tokenize.Range) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r.Start.Row < 0 || r.End.Row >= len(b.lines) || r.Start.Row > r.End.Row {
		return ""
	}
	if r.Start.Row == r.End.Row {
		return clip(b.lines[r.Start.Row], r.Start.Column, r.End.Column)
	}
	var sb strings.Builder
	sb.WriteString(clip(b.lines[r.Start.Row], r.Start.Column, len(b.lines[r.Start.Row])))
	for row := r.Start.Row + 1; row < r.End.Row; row++ {
		sb.WriteByte('\n')
		sb.WriteString(b.lines[row])
	}
	sb.WriteByte('\n')
	sb.WriteString(clip(b.lines[r.End.Row], 0, r.End.Column))
	return sb.String()
}

func clip(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		return ""
	}
	return s[start:end]
}

func (b *Buffer) ClipPosition(pos tokenize.Position) tokenize.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.lines) == 0 {
		return tokenize.Position{}
	}
	row := pos.Row
	if row < 0 {
		row = 0
	}
	if row >= len(b.lines) {
		row = len(b.lines) - 1
	}
	col := pos.Column
	if col < 0 {
		col = 0
	}
	if col > len(b.lines[row]) {
		col = len(b.lines[row])
	}
	return tokenize.Position{Row: row, Column: col}
}

func (b *Buffer) Path() string { return b.path }
func (b *Buffer) ID() string   { return b.id }

func (b *Buffer) GetText() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.lines, "\n")
}

func (b *Buffer) ChangeCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.changeCount
}

func (b *Buffer) IsAlive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.alive
}

func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alive = false
}

func (b *Buffer) OnDidChange(cb func(tokenize.EditEvent)) tokenize.Disposable {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = cb
	b.mu.Unlock()
	return tokenize.DisposableFunc(func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	})
}

// SetTextInRange replaces the lines spanned by oldRange with newText and
// notifies subscribers with the resulting EditEvent. newText's line breaks
// are always "\n", matching GetTextInRange's join.
func (b *Buffer) SetTextInRange(oldRange tokenize.Range, newText string) tokenize.EditEvent {
	b.mu.Lock()

	prefix := clip(b.lines[oldRange.Start.Row], 0, oldRange.Start.Column)
	suffix := clip(b.lines[oldRange.End.Row], oldRange.End.Column, len(b.lines[oldRange.End.Row]))

	replacement := splitLines(prefix + newText + suffix)

	tail := append([]string(nil), b.lines[oldRange.End.Row+1:]...)
	out := append([]string(nil), b.lines[:oldRange.Start.Row]...)
	out = append(out, replacement...)
	out = append(out, tail...)
	b.lines = out
	b.changeCount++

	newEndRow := oldRange.Start.Row + len(replacement) - 1
	var newEndCol int
	if len(replacement) == 1 {
		newEndCol = oldRange.Start.Column + len(newText)
	} else {
		newEndCol = len(replacement[len(replacement)-1]) - len(suffix)
	}

	ev := tokenize.EditEvent{
		OldRange: oldRange,
		NewRange: tokenize.Range{
			Start: oldRange.Start,
			End:   tokenize.Position{Row: newEndRow, Column: newEndCol},
		},
	}

	cbs := make([]func(tokenize.EditEvent), 0, len(b.listeners))
	for _, cb := range b.listeners {
		cbs = append(cbs, cb)
	}
	b.mu.Unlock()

	for _, cb := range cbs {
		cb(ev)
	}
	return ev
}

var _ tokenize.TextBuffer = (*Buffer)(nil)
