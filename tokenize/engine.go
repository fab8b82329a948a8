package tokenize

// ruleStackAtLocked returns the rule-stack carried into row: the end-stack of
// row-1, or nil for row 0. Returns (nil, false) if row-1 hasn't been
// tokenized yet.
func (tb *TokenizedBuffer) ruleStackAtLocked(row int) (RuleStack, bool) {
	if row <= 0 {
		return nil, true
	}
	prev := tb.lines[row-1]
	if prev == nil {
		return nil, false
	}
	return prev.RuleStack, true
}

// openScopesAtLocked returns the scope stack carried into row.
func (tb *TokenizedBuffer) openScopesAtLocked(row int) (ScopeStack, bool) {
	if row <= 0 {
		return nil, true
	}
	prev := tb.lines[row-1]
	if prev == nil {
		return nil, false
	}
	return prev.endOfLineScopes(tb.assert, tb.buffer.Path()), true
}

// buildLineLocked tokenizes row from scratch using the given seed state.
func (tb *TokenizedBuffer) buildLineLocked(row int, stack RuleStack, openScopes ScopeStack) *TokenizedLine {
	text := tb.buffer.LineForRow(row)
	tags, newStack := tb.grammar.TokenizeLine(text, stack, row == 0)
	return &TokenizedLine{
		Text:       text,
		LineEnding: tb.buffer.LineEndingForRow(row),
		Tags:       tags,
		RuleStack:  newStack,
		OpenScopes: openScopes,
		Grammar:    tb.grammar,
	}
}

func sameRuleStack(a, b RuleStack) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// tokenizeNextChunkLocked drains up to chunkSize rows of invalidated work,
// stopping early at the first row whose rebuilt rule-stack matches the
// previously cached one for that row (§4.5.2, Fixed-point rule).
func (tb *TokenizedBuffer) tokenizeNextChunkLocked() {
	lastRow := tb.buffer.LastRow()
	rowsRemaining := tb.cfg.chunkSize()

	for !tb.invalid.Empty() && rowsRemaining > 0 {
		startRow, ok := tb.invalid.PopMin()
		if !ok {
			break
		}
		if startRow > lastRow {
			continue
		}

		row := startRow
		var endRow int
		filled := false

		for {
			previousStack, _ := tb.ruleStackAtLocked(row)
			var previousCached RuleStack
			if tb.lines[row] != nil {
				previousCached = tb.lines[row].RuleStack
			}

			openScopes, _ := tb.openScopesAtLocked(row)
			tb.lines[row] = tb.buildLineLocked(row, previousStack, openScopes)
			rowsRemaining--

			if rowsRemaining == 0 {
				endRow = row
				filled = false
				break
			}
			if row == lastRow {
				endRow = row
				filled = true
				break
			}
			if previousCached != nil && sameRuleStack(tb.lines[row].RuleStack, previousCached) {
				endRow = row
				filled = true
				break
			}
			row++
		}

		tb.validateRowsUpToLocked(endRow)
		if !filled {
			tb.invalid.Insert(endRow + 1)
		}
		tb.emitInvalidateRangeLocked(startRow, endRow+1)
	}

	if !tb.invalid.Empty() {
		tb.kickBackgroundLocked()
	} else {
		tb.markCompleteLocked()
	}
}

func (tb *TokenizedBuffer) markCompleteLocked() {
	tb.setFullyTokenizedLocked(tb.invalid.Empty())
}

func (tb *TokenizedBuffer) emitInvalidateRangeLocked(startRow, endRowExclusive int) {
	tb.onInvalidate.emit(Range{
		Start: Position{Row: startRow, Column: 0},
		End:   Position{Row: endRowExclusive, Column: 0},
	})
}

// bufferDidChangeCallback adapts the TextBuffer's change notification to
// bufferDidChange, taking the lock for the duration of the edit.
func (tb *TokenizedBuffer) bufferDidChangeCallback(ev EditEvent) {
	tb.mu.Lock()
	tb.bufferDidChangeLocked(ev)
	tb.mu.Unlock()
	tb.scheduleIfPending()
}

// bufferDidChangeLocked implements §4.5.3.
func (tb *TokenizedBuffer) bufferDidChangeLocked(ev EditEvent) {
	if tb.grammar == nil {
		// No cache exists yet; SetGrammar sizes it to the buffer as it is then.
		return
	}
	start := ev.OldRange.Start.Row
	end := ev.OldRange.End.Row
	delta := ev.NewRange.End.Row - ev.OldRange.End.Row
	oldCount := end - start + 1
	newCount := ev.NewRange.End.Row - ev.NewRange.Start.Row + 1

	tb.invalid.Rebase(start, end, delta)

	var previousEndStack RuleStack
	if end < len(tb.lines) && tb.lines[end] != nil {
		previousEndStack = tb.lines[end].RuleStack
	}

	tb.lines = spliceLines(tb.lines, start, oldCount, newCount)

	if tb.cfg.LargeFileMode || isNullGrammar(tb.grammar) {
		// Spliced slots stay empty; synthesized on demand.
		tb.kickBackgroundLocked()
		return
	}

	newEnd := end + delta
	seedStack, seedAvailable := tb.ruleStackAtLocked(start)
	if !seedAvailable {
		// Row start-1 hasn't been background-tokenized yet: there is no
		// continuation to seed from, so don't guess with a nil stack.
		// Mark start itself invalid and let the background drain catch up
		// once its predecessor is resolved.
		tb.invalidateRowLocked(start)
	} else {
		seedScopes, _ := tb.openScopesAtLocked(start)
		tb.buildTokenizedLinesForRowsLocked(start, newEnd, seedStack, seedScopes)

		if newEnd >= 0 && newEnd < len(tb.lines) && tb.lines[newEnd] != nil {
			newEndStack := tb.lines[newEnd].RuleStack
			if newEndStack != nil && !sameRuleStack(newEndStack, previousEndStack) {
				tb.invalidateRowLocked(newEnd + 1)
			}
		}
	}

	tb.kickBackgroundLocked()
}

// spliceLines replaces the oldCount rows starting at start with newCount
// empty slots.
func spliceLines(lines []*TokenizedLine, start, oldCount, newCount int) []*TokenizedLine {
	tail := append([]*TokenizedLine(nil), lines[start+oldCount:]...)
	out := append([]*TokenizedLine(nil), lines[:start]...)
	out = append(out, make([]*TokenizedLine, newCount)...)
	out = append(out, tail...)
	return out
}

// buildTokenizedLinesForRowsLocked eagerly builds rows [start, end] in order,
// stopping early (and invalidating the remainder) if it would exceed one
// chunk's worth of work (§4.5.4).
func (tb *TokenizedBuffer) buildTokenizedLinesForRowsLocked(start, end int, stack RuleStack, openScopes ScopeStack) {
	limit := start + tb.cfg.chunkSize()
	lastRow := len(tb.lines) - 1
	if end > lastRow {
		end = lastRow
	}

	row := start
	for ; row <= end; row++ {
		if row >= limit {
			break
		}
		line := tb.buildLineLocked(row, stack, openScopes)
		tb.lines[row] = line
		stack = line.RuleStack
		openScopes = line.endOfLineScopes(tb.assert, tb.buffer.Path())
	}

	if row <= end {
		tb.invalidateRowLocked(row)
	}
}
