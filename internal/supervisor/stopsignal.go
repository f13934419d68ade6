package supervisor

import (
	"sync"
	"sync/atomic"
)

// StopSignal is a manual-reset binary signal shared by exactly two parties
// per running instance: the control-dispatch context sets it, the main loop
// polls it. Once set it stays set; Close releases it during teardown.
type StopSignal struct {
	ch     chan struct{}
	set    sync.Once
	closed atomic.Bool
}

// NewStopSignal returns an unset signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Set marks the signal. Idempotent: setting twice is indistinguishable
// from setting once.
func (s *StopSignal) Set() {
	s.set.Do(func() { close(s.ch) })
}

// Signaled polls the signal without blocking.
func (s *StopSignal) Signaled() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Close releases the signal. Called exactly once, from teardown.
func (s *StopSignal) Close() {
	s.closed.Store(true)
}

// Closed reports whether Close has been called.
func (s *StopSignal) Closed() bool {
	return s.closed.Load()
}
