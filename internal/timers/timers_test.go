package timers

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestArmFiresAndForgets(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})
	r.Arm("b1", 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	// fired timers are dropped from the registry
	deadline := time.Now().Add(time.Second)
	for r.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected empty registry, got %d", r.Len())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCancelPreventsFire(t *testing.T) {
	r := NewRegistry()
	var fired atomic.Int32
	r.Arm("b1", 20*time.Millisecond, func() { fired.Add(1) })
	r.Cancel("b1")

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled timer must not fire")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRearmReplacesExisting(t *testing.T) {
	r := NewRegistry()
	var first, second atomic.Int32
	r.Arm("b1", 20*time.Millisecond, func() { first.Add(1) })
	r.Arm("b1", 20*time.Millisecond, func() { second.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatal("replaced timer must not fire")
	}
	if second.Load() != 1 {
		t.Fatalf("replacement timer should fire once, fired %d times", second.Load())
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestCancelUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Cancel("missing")
	if r.Len() != 0 {
		t.Fatal("registry should stay empty")
	}
}
