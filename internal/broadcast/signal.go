// Package broadcast provides typed observer fan-out with optional awaiting
// of every subscriber.
package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Handler receives one emitted value.
type Handler[T any] func(ctx context.Context, v T) error

// Signal is a set of subscribers for values of type T. The zero value is
// ready to use.
type Signal[T any] struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]Handler[T]
}

// Connect subscribes h and returns a func that removes it.
func (s *Signal[T]) Connect(h Handler[T]) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[uint64]Handler[T])
	}
	s.next++
	key := s.next
	s.subs[key] = h
	return func() {
		s.mu.Lock()
		delete(s.subs, key)
		s.mu.Unlock()
	}
}

// Len returns the number of subscribers.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// handlers returns subscribers in connection order.
func (s *Signal[T]) handlers() []Handler[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]uint64, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]Handler[T], 0, len(keys))
	for _, k := range keys {
		out = append(out, s.subs[k])
	}
	return out
}

// Emit calls every subscriber in connection order on the calling goroutine
// and returns all of their errors joined.
func (s *Signal[T]) Emit(ctx context.Context, v T) error {
	var errs []error
	for _, h := range s.handlers() {
		if err := h(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmitAwait runs every subscriber concurrently and waits for all of them.
// The first failure is returned and cancels the context passed to the
// remaining subscribers.
func (s *Signal[T]) EmitAwait(ctx context.Context, v T) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range s.handlers() {
		g.Go(func() error {
			return h(gctx, v)
		})
	}
	return g.Wait()
}
