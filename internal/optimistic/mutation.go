// Package optimistic implements the apply-then-persist pattern once, so
// every feature that edits trip sub-state (expenses, notes) shares the same
// rollback and status semantics instead of repeating them ad hoc.
package optimistic

import (
	"context"
	"sync"
)

// SaveState mirrors the persistence status surfaced to callers. Failures are
// reported through this flag, never as a panic that interrupts serving.
type SaveState string

const (
	StateIdle   SaveState = "idle"
	StateSaving SaveState = "saving"
	StateSaved  SaveState = "saved"
	StateError  SaveState = "error"
)

// Result reports the state after a mutation attempt. On persistence failure
// Value holds the restored pre-mutation snapshot.
type Result[T any] struct {
	Value T
	State SaveState
	Seq   uint64
	Err   error
}

// Mutator guards one entity's local state. Each mutation gets a
// monotonically increasing sequence number; a completion that is no longer
// the newest issued mutation must not clobber later local state, which
// resolves the out-of-order persistence question in favor of local wins.
type Mutator[T any] struct {
	mu        sync.Mutex
	value     T
	seq       uint64
	saveState SaveState
}

func NewMutator[T any](initial T) *Mutator[T] {
	return &Mutator[T]{
		value:     initial,
		saveState: StateIdle,
	}
}

// Current returns the present local value and save status.
func (m *Mutator[T]) Current() (T, SaveState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.saveState
}

// Apply performs one optimistic mutation: the local value is updated first,
// then persist is attempted with the new value. If persist fails and no newer
// mutation has been issued meanwhile, the prior snapshot is restored.
func (m *Mutator[T]) Apply(ctx context.Context, mutate func(T) T, persist func(context.Context, T) error) Result[T] {
	m.mu.Lock()
	snapshot := m.value
	next := mutate(m.value)
	m.value = next
	m.seq++
	seq := m.seq
	m.saveState = StateSaving
	m.mu.Unlock()

	err := persist(ctx, next)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seq != seq {
		// a newer mutation was issued while this one was in flight; its
		// completion decides the state, ours is stale either way
		return Result[T]{Value: m.value, State: m.saveState, Seq: seq, Err: err}
	}

	if err != nil {
		m.value = snapshot
		m.saveState = StateError
		return Result[T]{Value: snapshot, State: StateError, Seq: seq, Err: err}
	}

	m.saveState = StateSaved
	return Result[T]{Value: next, State: StateSaved, Seq: seq}
}
