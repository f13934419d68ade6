// Package supervisor implements the service lifecycle core: the status
// state machine, the stop-signal bridge between the OS control-dispatch
// context and the main loop, and the main loop driving the resolution
// engine. It is platform neutral; internal/service adapts it to the OS
// service manager.
package supervisor

import (
	"sync"
	"time"
)

// State is a service lifecycle state as reported to the OS service manager.
type State int

const (
	StartPending State = iota + 1
	Running
	StopPending
	Stopped
)

func (s State) String() string {
	switch s {
	case StartPending:
		return "start-pending"
	case Running:
		return "running"
	case StopPending:
		return "stop-pending"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status is one published lifecycle snapshot.
type Status struct {
	State State
	// ExitCode is the numeric exit code reported with Stopped.
	ExitCode uint32
	// WaitHint tells the service manager how long to wait before
	// considering a pending transition hung.
	WaitHint time.Duration
	// Checkpoint is a monotonic progress counter for pending states.
	Checkpoint uint32
}

// Reporter forwards a status snapshot to the OS service manager (or to a
// log, or to a test recorder). Implementations must be safe for calls from
// both the main-loop and the control-dispatch contexts.
type Reporter interface {
	Report(Status)
}

// publisher owns the checkpoint counter and applies the checkpoint rules:
// the counter resets to 0 when entering Running or Stopped and strictly
// increases on every publish while pending, starting at 0. The published
// walk never regresses: once StopPending is out, StartPending and Running
// are dropped; Stopped is terminal and drops everything after it.
type publisher struct {
	mu         sync.Mutex
	r          Reporter
	checkpoint uint32
	stopping   bool
	terminal   bool
}

func newPublisher(r Reporter) *publisher {
	return &publisher{r: r}
}

func (p *publisher) publish(state State, exitCode uint32, waitHint time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.terminal {
		return
	}
	// A stop request can land on the control-dispatch context while the
	// main loop is still initializing; the Running it publishes afterwards
	// must not walk the state backwards.
	if p.stopping && state != StopPending && state != Stopped {
		return
	}

	st := Status{State: state, ExitCode: exitCode, WaitHint: waitHint}
	switch state {
	case Running, Stopped:
		p.checkpoint = 0
	default:
		st.Checkpoint = p.checkpoint
		p.checkpoint++
	}

	if state == StopPending {
		p.stopping = true
	}
	if state == Stopped {
		p.terminal = true
	}

	p.r.Report(st)
}
