package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNullGrammarCompletesSynchronously is spec.md §8 Scenario A: a null
// grammar never leaves invalidRows populated, so IsFullyTokenized is true the
// instant the buffer is bound, before background tokenization is even possible.
func TestNullGrammarCompletesSynchronously(t *testing.T) {
	buf := newFakeBuffer("one", "two", "three")
	sched := &countingScheduler{}
	tb := New(buf, nullTestGrammar{}, Config{}, sched)

	assert.True(t, tb.IsFullyTokenized())
	assert.Equal(t, 0, sched.count)

	tb.SetVisible(true)
	assert.True(t, tb.IsFullyTokenized(), "null grammar has nothing left to tokenize once visible")
}

// TestSpillPropagationStopsAtFixedPoint is spec.md §8 Scenario B: editing the
// line that opens a multi-line comment must re-tokenize forward only until a
// row's rebuilt rule-stack matches what was already cached there.
func TestSpillPropagationStopsAtFixedPoint(t *testing.T) {
	buf := newFakeBuffer("before", "/*", "inside", "*/", "after")
	tb := New(buf, commentGrammar{}, Config{}, SyncScheduler{})
	tb.SetVisible(true)
	tb.RunBackgroundToCompletion()
	require.True(t, tb.IsFullyTokenized())

	tokenizeCount := 0
	tb.OnDidTokenize(func() { tokenizeCount++ })

	line1, ok := tb.TokenizedLineForRow(1)
	require.True(t, ok)
	assert.Equal(t, TagStream{-commentStartID, 2}, line1.Tags)
	line3, ok := tb.TokenizedLineForRow(3)
	require.True(t, ok)
	assert.Equal(t, TagStream{2, -commentEndID}, line3.Tags)

	// Hide the buffer so the edit does not schedule its own chunk (SyncScheduler
	// would run it inline); the explicit drain below does that work instead.
	tb.SetVisible(false)

	// Replace the comment-opening line with plain text of the same length.
	buf.replaceRows(1, 1, "xx")
	tb.bufferDidChangeCallback(EditEvent{
		OldRange: Range{Start: Position{Row: 1, Column: 0}, End: Position{Row: 1, Column: 2}},
		NewRange: Range{Start: Position{Row: 1, Column: 0}, End: Position{Row: 1, Column: 2}},
	})
	// The edit spills an invalidation forward to row 3: until the drain
	// catches up, fullyTokenized must read false (§3 invariant).
	require.False(t, tb.IsFullyTokenized(), "spilled invalidation must clear fullyTokenized before the drain")

	tb.RunBackgroundToCompletion()
	require.True(t, tb.IsFullyTokenized())
	assert.Equal(t, 1, tokenizeCount, "did-tokenize must re-fire on the fresh not-fully-tokenized -> fully-tokenized transition after the edit")

	newLine1, ok := tb.TokenizedLineForRow(1)
	require.True(t, ok)
	assert.Equal(t, TagStream{2}, newLine1.Tags, "row no longer opens a comment")

	newLine3, ok := tb.TokenizedLineForRow(3)
	require.True(t, ok)
	assert.Equal(t, TagStream{2}, newLine3.Tags, "close tag must vanish once upstream no longer opens the comment")
}

// TestFixedPointShortCircuitsSameRowEdit is spec.md §8 Scenario C: editing a
// row whose rebuilt rule-stack is unchanged must not invalidate anything past
// that row.
func TestFixedPointShortCircuitsSameRowEdit(t *testing.T) {
	buf := newFakeBuffer("aaa", "bbb", "ccc")
	tb := New(buf, plainGrammar{}, Config{}, SyncScheduler{})
	tb.SetVisible(true)
	tb.RunBackgroundToCompletion()
	require.True(t, tb.IsFullyTokenized())

	buf.replaceRows(1, 1, "zzzzz")
	tb.bufferDidChangeCallback(EditEvent{
		OldRange: Range{Start: Position{Row: 1, Column: 0}, End: Position{Row: 1, Column: 3}},
		NewRange: Range{Start: Position{Row: 1, Column: 0}, End: Position{Row: 1, Column: 5}},
	})

	assert.True(t, tb.IsFullyTokenized(), "plainGrammar's rule-stack never varies, so the edit must not invalidate row 2")

	line1, ok := tb.TokenizedLineForRow(1)
	require.True(t, ok)
	assert.Equal(t, TagStream{5}, line1.Tags)
}

// TestBackgroundTokenizationDrainsInChunks is spec.md §8 Scenario D: a large
// file is tokenized across multiple deferred chunks, and OnDidTokenize fires
// exactly once, when the last chunk completes the fixed point.
func TestBackgroundTokenizationDrainsInChunks(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "line"
	}
	buf := newFakeBuffer(lines...)
	sched := &countingScheduler{}
	tb := New(buf, plainGrammar{}, Config{ChunkSize: 20}, sched)

	tokenizeCount := 0
	tb.OnDidTokenize(func() { tokenizeCount++ })

	assert.False(t, tb.IsFullyTokenized())
	tb.SetVisible(true)

	assert.GreaterOrEqual(t, sched.count, 5, "100 rows at chunkSize 20 must take at least 5 deferred chunks")
	assert.True(t, tb.IsFullyTokenized())
	assert.Equal(t, 1, tokenizeCount)

	last, ok := tb.TokenizedLineForRow(99)
	require.True(t, ok)
	assert.Equal(t, TagStream{4}, last.Tags)
}
