// Package cache provides single-flight memoization of fallible calls.
// Entries hold futures rather than values, so callers arriving while a call
// is still in flight share that call instead of issuing their own.
package cache

import (
	"context"
	"errors"
	"sync"
)

// future is the shared result of one call. val and err are written once,
// before done is closed.
type future[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func resolved[V any](v V) *future[V] {
	f := &future[V]{done: make(chan struct{}), val: v}
	close(f.done)
	return f
}

func (f *future[V]) settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Memo memoizes call results per key.
//
// Successful results, including zero values such as a nil pointer, stay cached
// until the key is deleted. A failed call removes its own entry so the next
// caller retries.
//
// Memo is safe for concurrent use. The zero value is ready to use.
type Memo[V any] struct {
	mu      sync.Mutex
	entries map[string]*future[V]
}

// NewMemo returns an empty Memo.
func NewMemo[V any]() *Memo[V] {
	return &Memo[V]{entries: make(map[string]*future[V])}
}

// Do returns the cached result for key, waiting on an in-flight call if one
// exists, or runs fn and caches its result.
//
// fn runs on the calling goroutine with the caller's context. When the call
// that a waiter joined fails because its owner was cancelled or ran out of
// time, and the waiter's own context is still live, the waiter starts a fresh
// call.
func (m *Memo[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	for {
		m.mu.Lock()
		if m.entries == nil {
			m.entries = make(map[string]*future[V])
		}
		f, ok := m.entries[key]
		if !ok {
			f = &future[V]{done: make(chan struct{})}
			m.entries[key] = f
			m.mu.Unlock()
			return m.run(ctx, key, f, fn)
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		case <-f.done:
		}

		if f.err != nil && ctx.Err() == nil && ownerStopped(f.err) {
			continue
		}
		return f.val, f.err
	}
}

// ownerStopped reports whether err ended a call because of its owner's
// context rather than the work itself.
func ownerStopped(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Memo[V]) run(ctx context.Context, key string, f *future[V], fn func(context.Context) (V, error)) (V, error) {
	completed := false
	defer func() {
		if !completed {
			f.err = errors.New("cache: call panicked")
		}
		if f.err != nil {
			m.mu.Lock()
			if m.entries[key] == f {
				delete(m.entries, key)
			}
			m.mu.Unlock()
		}
		close(f.done)
	}()

	f.val, f.err = fn(ctx)
	completed = true
	return f.val, f.err
}

// Get returns the cached value for key if its call has completed successfully.
// It never blocks.
func (m *Memo[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	f, ok := m.entries[key]
	m.mu.Unlock()

	var zero V
	if !ok || !f.settled() || f.err != nil {
		return zero, false
	}
	return f.val, true
}

// Pending reports whether a call for key is in flight.
func (m *Memo[V]) Pending(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.entries[key]
	return ok && !f.settled()
}

// Set stores v as the completed result for key, replacing any entry.
func (m *Memo[V]) Set(key string, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]*future[V])
	}
	m.entries[key] = resolved(v)
}

// Delete drops the entry for key. An in-flight call still completes for the
// callers already waiting on it, but its result is not cached.
func (m *Memo[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// DeleteFunc drops every entry whose key satisfies match.
func (m *Memo[V]) DeleteFunc(match func(key string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if match(key) {
			delete(m.entries, key)
		}
	}
}

// Clear drops every entry.
func (m *Memo[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*future[V])
}

// Len returns the number of entries, in flight or completed.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
