package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestLimiterWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 10, 0, time.UTC)
	l := New(NewMemoryCounter(), 2, time.Minute, "USER")
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "u1")
		if err != nil {
			t.Fatalf("Allow() #%d error = %v", i, err)
		}
		if ok != want {
			t.Fatalf("Allow() #%d = %v, want %v", i, ok, want)
		}
	}
	if ok, _ := l.Allow(ctx, "u2"); !ok {
		t.Fatalf("Allow(u2) = false, want true")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow(ctx, "u1"); !ok {
		t.Fatalf("Allow() in next window = false, want true")
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New(failingCounter{}, 1, time.Minute, "USER")
	ok, err := l.Allow(context.Background(), "u1")
	if !ok {
		t.Fatalf("Allow() = false, want true when the counter fails")
	}
	if err == nil {
		t.Fatalf("Allow() error = nil, want the counter error")
	}
}

func TestLimiterDisabled(t *testing.T) {
	var nilLimiter *Limiter
	if ok, err := nilLimiter.Allow(context.Background(), "u1"); !ok || err != nil {
		t.Fatalf("nil limiter Allow() = %v, %v", ok, err)
	}
	l := New(nil, 1, time.Minute, "USER")
	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(context.Background(), "u1"); !ok {
			t.Fatalf("limiter without counter rejected request %d", i)
		}
	}
}
