package lifecycle

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_NextDoublesUpToMax(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 350*time.Millisecond)

	bases := []time.Duration{100, 200, 350, 350}
	for i, base := range bases {
		base *= time.Millisecond
		if b.Current() != base {
			t.Fatalf("attempt %d: Current() = %v, want %v", i, b.Current(), base)
		}
		d := b.Next()
		lo, hi := time.Duration(float64(base)*0.8), time.Duration(float64(base)*1.2)
		if d < lo || d > hi {
			t.Errorf("attempt %d: Next() = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}

	b.Reset()
	if b.Current() != 100*time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 100ms", b.Current())
	}
}

func TestBackoff_MaxBelowInitial(t *testing.T) {
	b := NewBackoff(time.Second, time.Millisecond)
	b.Next()
	if b.Current() != time.Second {
		t.Errorf("Current() = %v, want 1s", b.Current())
	}
}

func TestBackoff_WaitCancelled(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() did not return promptly on cancellation")
	}
}

func TestBackoff_WaitElapses(t *testing.T) {
	b := NewBackoff(5*time.Millisecond, 5*time.Millisecond)
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
