package supervisor

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"dnsrelay/internal/logger"
)

// ErrIdle is returned by Driver.RunOnce when no work was available within
// the iteration bound. The host paces the loop instead of spinning.
var ErrIdle = errors.New("event loop idle")

// Driver runs one bounded iteration of the engine's event loop. Each call
// must return control to the host within the engine's iteration bound.
type Driver interface {
	RunOnce() error
}

// Engine is the lifecycle contract of the external resolution engine. The
// engine and its driver are only ever touched by the goroutine inside Run.
type Engine interface {
	// SetLogLevel applies the verbosity passed as the service start argument.
	SetLogLevel(level int)
	// LoadConfig loads the resolver configuration into the engine context.
	LoadConfig() error
	// Listen starts the resolver's listeners.
	Listen() error
	// EventLoop returns the driver for the engine's event loop.
	EventLoop() (Driver, error)
	// Destroy releases the engine context and its configuration state.
	Destroy()
}

// EngineFactory creates the engine context once initialization begins.
type EngineFactory func() (Engine, error)

// EventSink receives operator-facing diagnostics independent of service
// status, such as startup failures that happen before the service is
// meaningfully visible anywhere else.
type EventSink interface {
	Event(level zerolog.Level, msg string)
}

// NopEventSink discards all events.
type NopEventSink struct{}

func (NopEventSink) Event(zerolog.Level, string) {}

// Wait hints published while start is pending. The exact values are not
// load-bearing; they only need to be nonzero while work is in flight.
const (
	initialWaitHint = 3 * time.Second
	setupWaitHint   = time.Second
)

const defaultPollInterval = 50 * time.Millisecond

// Config configures a Host.
type Config struct {
	Reporter Reporter
	Engine   EngineFactory
	// Events is optional; nil means discard.
	Events EventSink
	// Clock is optional; nil means the wall clock.
	Clock clock.Clock
	// PollInterval paces the loop while the event loop reports idle.
	// Zero means the default.
	PollInterval time.Duration
}

// Host owns the stop signal, the lifecycle state machine and the main
// loop. It is the single shared context object referenced by both the
// main-loop goroutine (Run) and the control-dispatch goroutine
// (RequestStop); one Host exists per running service instance and Run may
// be called at most once.
type Host struct {
	pub          *publisher
	newEngine    EngineFactory
	events       EventSink
	clk          clock.Clock
	pollInterval time.Duration
	log          zerolog.Logger

	signal *StopSignal

	// engine and released belong to the main-loop goroutine only.
	engine   Engine
	released bool
}

// New creates a Host. cfg.Reporter and cfg.Engine are required.
func New(cfg Config) *Host {
	events := cfg.Events
	if events == nil {
		events = NopEventSink{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Host{
		pub:          newPublisher(cfg.Reporter),
		newEngine:    cfg.Engine,
		events:       events,
		clk:          clk,
		pollInterval: interval,
		log:          logger.WithComponent("supervisor"),
		signal:       NewStopSignal(),
	}
}

// Run executes the service lifecycle: initialize the engine, report
// Running, drive the event loop until the stop signal is observed, then
// tear down and report Stopped. It returns the exit code it published.
// logLevel is the numeric verbosity from the service start argument; a
// negative value leaves the engine's configured verbosity untouched.
func (h *Host) Run(logLevel int) uint32 {
	defer h.release()

	h.pub.publish(StartPending, 0, initialWaitHint)

	eng, err := h.newEngine()
	if err != nil {
		return h.failStartup(fmt.Sprintf("Create engine context failed: %v", err))
	}
	h.engine = eng

	if logLevel >= 0 {
		eng.SetLogLevel(logLevel)
	}

	h.pub.publish(StartPending, 0, setupWaitHint)

	if err := eng.LoadConfig(); err != nil {
		return h.failStartup(fmt.Sprintf("Load configuration failed: %v", err))
	}
	if err := eng.Listen(); err != nil {
		return h.failStartup(fmt.Sprintf("Listen failed: %v", err))
	}
	drv, err := eng.EventLoop()
	if err != nil {
		return h.failStartup(fmt.Sprintf("Get event loop failed: %v", err))
	}

	// A stop requested during initialization skips Running entirely; the
	// publisher additionally drops a Running that loses the race with
	// StopPending.
	if h.signal.Signaled() {
		h.log.Info().Msg("Stop requested during startup")
		h.pub.publish(Stopped, 0, 0)
		return 0
	}

	h.pub.publish(Running, 0, 0)
	h.log.Info().Msg("Service running")

	code := h.loop(drv)

	h.pub.publish(Stopped, code, 0)
	return code
}

// loop polls the stop signal, otherwise runs one event-loop iteration.
// Exit code 0 on a signaled stop, 1 on a fatal event-loop error (treated
// as an implicit stop).
func (h *Host) loop(drv Driver) uint32 {
	for {
		if h.signal.Signaled() {
			h.log.Debug().Msg("Stop signal observed")
			return 0
		}

		err := drv.RunOnce()
		switch {
		case err == nil:
		case errors.Is(err, ErrIdle):
			h.clk.Sleep(h.pollInterval)
		default:
			h.log.Error().Err(err).Msg("Event loop failed")
			h.events.Event(zerolog.ErrorLevel, fmt.Sprintf("Event loop failed: %v", err))
			return 1
		}
	}
}

func (h *Host) failStartup(msg string) uint32 {
	h.log.Error().Msg(msg)
	h.events.Event(zerolog.ErrorLevel, msg)
	h.pub.publish(Stopped, 1, 0)
	return 1
}

// release tears down the engine context and the stop signal. Reachable
// from both the initialization-failure path and the loop-exit path; the
// guard keeps it to exactly one execution per instance. Runs on the
// main-loop goroutine only, so no engine call races with the event loop.
func (h *Host) release() {
	if h.released {
		return
	}
	h.released = true

	if h.engine != nil {
		h.engine.Destroy()
		h.engine = nil
	}
	h.signal.Close()
}

// RequestStop is the control-dispatch path: publish StopPending and set
// the stop signal. It never touches the engine; teardown belongs to the
// main loop. Safe to call concurrently with Run and idempotent.
func (h *Host) RequestStop() {
	h.pub.publish(StopPending, 0, 0)
	h.signal.Set()
}

// Signal exposes the stop signal for tests.
func (h *Host) Signal() *StopSignal {
	return h.signal
}
