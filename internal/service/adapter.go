package service

import (
	"errors"

	"dnsrelay/internal/config"
	"dnsrelay/internal/engine"
	"dnsrelay/internal/supervisor"
)

// engineRuntime adapts an engine.Context and its pre-parsed configuration
// to the supervisor's engine contract.
type engineRuntime struct {
	cfg *config.Config
	ctx *engine.Context
}

// newEngineFactory returns the factory the supervisor uses to create the
// engine once initialization begins. Configuration file parsing happens
// before the service host runs; the engine only validates and retains it.
func newEngineFactory(cfg *config.Config) supervisor.EngineFactory {
	return func() (supervisor.Engine, error) {
		ctx, err := engine.New()
		if err != nil {
			return nil, err
		}
		return &engineRuntime{cfg: cfg, ctx: ctx}, nil
	}
}

func (r *engineRuntime) SetLogLevel(level int) { r.ctx.SetLogLevel(level) }
func (r *engineRuntime) LoadConfig() error     { return r.ctx.LoadConfig(r.cfg) }
func (r *engineRuntime) Listen() error         { return r.ctx.Listen() }
func (r *engineRuntime) Destroy()              { r.ctx.Destroy() }

func (r *engineRuntime) EventLoop() (supervisor.Driver, error) {
	loop, err := r.ctx.EventLoop()
	if err != nil {
		return nil, err
	}
	return &loopDriver{loop: loop}, nil
}

// loopDriver translates the engine's idle result into the supervisor's.
type loopDriver struct {
	loop *engine.Loop
}

func (d *loopDriver) RunOnce() error {
	err := d.loop.RunOnce()
	if errors.Is(err, engine.ErrIdle) {
		return supervisor.ErrIdle
	}
	return err
}
