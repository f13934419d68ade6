package supervisor

import (
	"sync"
	"testing"
)

func TestStopSignal_InitiallyUnset(t *testing.T) {
	s := NewStopSignal()
	if s.Signaled() {
		t.Error("new signal should not be set")
	}
	if s.Closed() {
		t.Error("new signal should not be closed")
	}
}

func TestStopSignal_SetIsSticky(t *testing.T) {
	s := NewStopSignal()
	s.Set()
	if !s.Signaled() {
		t.Error("signal should be set")
	}
	// Polling does not reset a manual-reset signal.
	if !s.Signaled() {
		t.Error("signal should stay set after polling")
	}
}

func TestStopSignal_SetIdempotent(t *testing.T) {
	s := NewStopSignal()
	s.Set()
	s.Set() // must not panic on double close
	if !s.Signaled() {
		t.Error("signal should be set")
	}
}

func TestStopSignal_ConcurrentSetters(t *testing.T) {
	s := NewStopSignal()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set()
		}()
	}
	wg.Wait()

	if !s.Signaled() {
		t.Error("signal should be set")
	}
}

func TestStopSignal_Close(t *testing.T) {
	s := NewStopSignal()
	s.Set()
	s.Close()
	if !s.Closed() {
		t.Error("signal should report closed")
	}
}
