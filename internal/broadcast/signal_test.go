package broadcast

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestSignal_EmitCallsInConnectionOrder(t *testing.T) {
	var s Signal[int]
	var got []int
	s.Connect(func(_ context.Context, v int) error { got = append(got, v*1); return nil })
	s.Connect(func(_ context.Context, v int) error { got = append(got, v*10); return nil })

	if err := s.Emit(context.Background(), 2); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 20 {
		t.Fatalf("unexpected call order: %v", got)
	}
}

func TestSignal_DisconnectStopsDelivery(t *testing.T) {
	var s Signal[string]
	calls := 0
	off := s.Connect(func(context.Context, string) error { calls++; return nil })
	off()

	if err := s.Emit(context.Background(), "x"); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no calls after disconnect, got %d", calls)
	}
	if s.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", s.Len())
	}
}

func TestSignal_EmitJoinsErrors(t *testing.T) {
	var s Signal[int]
	errA := errors.New("a")
	errB := errors.New("b")
	s.Connect(func(context.Context, int) error { return errA })
	s.Connect(func(context.Context, int) error { return errB })

	err := s.Emit(context.Background(), 1)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestSignal_EmitAwaitWaitsForAllSubscribers(t *testing.T) {
	var s Signal[int]
	var done atomic.Int32
	for i := 0; i < 5; i++ {
		s.Connect(func(context.Context, int) error {
			done.Add(1)
			return nil
		})
	}

	if err := s.EmitAwait(context.Background(), 1); err != nil {
		t.Fatalf("emit await: %v", err)
	}
	if done.Load() != 5 {
		t.Fatalf("expected 5 subscribers to finish, got %d", done.Load())
	}
}

func TestSignal_EmitAwaitPropagatesFailure(t *testing.T) {
	var s Signal[int]
	boom := errors.New("boom")
	s.Connect(func(context.Context, int) error { return nil })
	s.Connect(func(context.Context, int) error { return boom })

	if err := s.EmitAwait(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
