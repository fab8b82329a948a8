package tokenize

import "sync"

// TokenizedBuffer maintains a per-row cache of TokenizedLine values bound to
// one TextBuffer, keeping it consistent under arbitrary edits and draining
// invalid rows in bounded background chunks until a fixed point is reached.
//
// All exported methods are safe for concurrent use: state is guarded by a
// single mutex, a stronger guarantee than the single-threaded cooperative
// model the spec describes, but a strict superset of it.
type TokenizedBuffer struct {
	mu sync.Mutex

	buffer    TextBuffer
	grammar   Grammar
	cfg       Config
	scheduler Scheduler
	assert    Assert

	lines   []*TokenizedLine
	invalid *InvalidRowSet

	fullyTokenized bool
	visible        bool
	pendingChunk   bool
	wantSchedule   bool
	alive          bool

	bufferSub  Disposable
	grammarSub Disposable

	onGrammarChange *emitter[Grammar]
	onTokenize      *emitter[struct{}]
	onInvalidate    *emitter[Range]
}

// New binds a TokenizedBuffer to buffer, tokenizing with grammar.
// grammar may be nil; call SetGrammar later to attach one.
func New(buffer TextBuffer, grammar Grammar, cfg Config, scheduler Scheduler) *TokenizedBuffer {
	if scheduler == nil {
		scheduler = SyncScheduler{}
	}
	tb := &TokenizedBuffer{
		buffer:          buffer,
		cfg:             cfg,
		scheduler:       scheduler,
		assert:          logAssert,
		invalid:         NewInvalidRowSet(),
		alive:           true,
		onGrammarChange: newEmitter[Grammar](),
		onTokenize:      newEmitter[struct{}](),
		onInvalidate:    newEmitter[Range](),
	}
	tb.bufferSub = buffer.OnDidChange(tb.bufferDidChangeCallback)
	tb.setGrammarLocked(grammar)
	return tb
}

// SetAssert overrides the diagnostic hook invoked on an unmatched scope-close.
func (tb *TokenizedBuffer) SetAssert(a Assert) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.assert = a
}

func (tb *TokenizedBuffer) OnDidChangeGrammar(cb func(Grammar)) Disposable {
	return tb.onGrammarChange.on(cb)
}

func (tb *TokenizedBuffer) OnDidTokenize(cb func()) Disposable {
	return tb.onTokenize.on(func(struct{}) { cb() })
}

func (tb *TokenizedBuffer) OnDidInvalidateRange(cb func(Range)) Disposable {
	return tb.onInvalidate.on(cb)
}

// IsFullyTokenized reports whether invalidRows is empty and every populated
// row has a cached TokenizedLine.
func (tb *TokenizedBuffer) IsFullyTokenized() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.fullyTokenized
}

// SetGrammar swaps the active grammar. A nil grammar or the current grammar
// is a no-op.
func (tb *TokenizedBuffer) SetGrammar(g Grammar) {
	tb.mu.Lock()
	tb.setGrammarLocked(g)
	tb.mu.Unlock()
	tb.scheduleIfPending()
}

func (tb *TokenizedBuffer) setGrammarLocked(g Grammar) {
	if g == nil || g == tb.grammar {
		return
	}
	if tb.grammarSub != nil {
		tb.grammarSub.Dispose()
		tb.grammarSub = nil
	}
	tb.grammar = g
	if g != nil {
		tb.grammarSub = g.OnDidUpdate(func() {
			tb.mu.Lock()
			tb.retokenizeLinesLocked()
			tb.mu.Unlock()
			tb.scheduleIfPending()
		})
	}
	tb.retokenizeLinesLocked()
	tb.onGrammarChange.emit(g)
}

// SetVisible toggles whether background tokenization may run. Becoming
// visible with an active grammar (outside large-file mode) kicks the
// scheduler.
func (tb *TokenizedBuffer) SetVisible(visible bool) {
	tb.mu.Lock()
	tb.visible = visible
	kick := visible && tb.grammar != nil && !tb.cfg.LargeFileMode
	tb.mu.Unlock()
	if kick {
		tb.tokenizeInBackground()
	}
}

// Destroy releases subscriptions and clears the cache. Already-scheduled
// deferred chunks become no-ops.
func (tb *TokenizedBuffer) Destroy() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.alive = false
	if tb.bufferSub != nil {
		tb.bufferSub.Dispose()
		tb.bufferSub = nil
	}
	if tb.grammarSub != nil {
		tb.grammarSub.Dispose()
		tb.grammarSub = nil
	}
	tb.lines = nil
	tb.invalid = NewInvalidRowSet()
	tb.pendingChunk = false
	tb.wantSchedule = false
}

// retokenizeLinesLocked resets the cache to buffer.LineCount() empty slots
// (§4.5.1).
func (tb *TokenizedBuffer) retokenizeLinesLocked() {
	tb.lines = make([]*TokenizedLine, tb.buffer.LineCount())
	tb.invalid = NewInvalidRowSet()

	if tb.cfg.LargeFileMode || isNullGrammar(tb.grammar) {
		tb.setFullyTokenizedLocked(true)
		return
	}
	tb.setFullyTokenizedLocked(false)
	tb.invalidateRowLocked(0)
}

func (tb *TokenizedBuffer) setFullyTokenizedLocked(v bool) {
	transitioned := v && !tb.fullyTokenized
	tb.fullyTokenized = v
	if transitioned {
		tb.onTokenize.emit(struct{}{})
	}
}

func (tb *TokenizedBuffer) invalidateRowLocked(row int) {
	tb.invalid.Insert(row)
	tb.fullyTokenized = false
	tb.kickBackgroundLocked()
}

func (tb *TokenizedBuffer) validateRowsUpToLocked(row int) {
	tb.invalid.ValidateUpTo(row)
}

// kickBackgroundLocked marks that a chunk should run, if one isn't already
// pending. It must be called with tb.mu held, and never calls the scheduler
// directly: scheduleIfPending does that, once the caller has released the
// lock, so a synchronous Scheduler never re-enters tb.mu from within the
// call that set the flag.
func (tb *TokenizedBuffer) kickBackgroundLocked() {
	if tb.pendingChunk || !tb.visible || !tb.alive || tb.grammar == nil || tb.cfg.LargeFileMode || isNullGrammar(tb.grammar) {
		return
	}
	tb.pendingChunk = true
	tb.wantSchedule = true
}

// scheduleIfPending dispatches a deferred chunk if kickBackgroundLocked
// flagged one while tb.mu was held earlier in this call. Callers must not
// hold tb.mu when invoking this.
func (tb *TokenizedBuffer) scheduleIfPending() {
	tb.mu.Lock()
	want := tb.wantSchedule
	tb.wantSchedule = false
	tb.mu.Unlock()
	if !want {
		return
	}
	tb.scheduler.Defer(func() {
		tb.mu.Lock()
		tb.pendingChunk = false
		alive := tb.alive && tb.buffer.IsAlive()
		if alive {
			tb.tokenizeNextChunkLocked()
		}
		tb.mu.Unlock()
		tb.scheduleIfPending()
	})
}

// tokenizeInBackground is the debounced entry point (§4.5.2): at most one
// chunk is ever in flight at a time.
func (tb *TokenizedBuffer) tokenizeInBackground() {
	tb.mu.Lock()
	tb.kickBackgroundLocked()
	tb.mu.Unlock()
	tb.scheduleIfPending()
}

// RunBackgroundToCompletion drains every pending chunk synchronously,
// regardless of the configured Scheduler. It exists for callers (tests,
// batch tooling) that need a deterministic fixed point without waiting on
// deferred work.
func (tb *TokenizedBuffer) RunBackgroundToCompletion() {
	for {
		tb.mu.Lock()
		if tb.invalid.Empty() || !tb.alive {
			tb.mu.Unlock()
			return
		}
		tb.tokenizeNextChunkLocked()
		tb.pendingChunk = false
		tb.wantSchedule = false
		tb.mu.Unlock()
	}
}
