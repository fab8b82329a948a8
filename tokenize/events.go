package tokenize

import "sync"

// emitter is a minimal synchronous pub-sub list: callers subscribe with an
// OnDid* method and get back a Disposable to unsubscribe. No ordering
// guarantee is made across distinct subscribers, matching the spec's
// requirement only of per-emission ordering (§5).
type emitter[T any] struct {
	mu        sync.Mutex
	nextID    int
	callbacks map[int]func(T)
}

func newEmitter[T any]() *emitter[T] {
	return &emitter[T]{callbacks: make(map[int]func(T))}
}

func (e *emitter[T]) on(cb func(T)) Disposable {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.callbacks[id] = cb
	e.mu.Unlock()

	return DisposableFunc(func() {
		e.mu.Lock()
		delete(e.callbacks, id)
		e.mu.Unlock()
	})
}

func (e *emitter[T]) emit(v T) {
	e.mu.Lock()
	cbs := make([]func(T), 0, len(e.callbacks))
	for _, cb := range e.callbacks {
		cbs = append(cbs, cb)
	}
	e.mu.Unlock()

	for _, cb := range cbs {
		cb(v)
	}
}
