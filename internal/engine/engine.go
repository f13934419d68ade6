// Package engine implements the DNS forwarding engine: UDP listeners, an
// event loop that hands out control in bounded iterations, and the
// upstream exchange over UDP, TCP or TLS.
//
// A Context and its event loop are owned by a single goroutine (the
// supervisor's main loop); nothing here is safe for concurrent use.
package engine

import (
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"dnsrelay/internal/config"
	"dnsrelay/internal/logger"
)

// ErrIdle is returned by Loop.RunOnce when no query arrived within the
// iteration bound.
var ErrIdle = errors.New("no queries within iteration bound")

// Context is the engine instance: configuration, listeners and the event
// loop, created and destroyed as one unit.
type Context struct {
	log       zerolog.Logger
	cfg       *config.Config
	conns     []*net.UDPConn
	loop      *Loop
	destroyed bool
}

// New creates an empty engine context.
func New() (*Context, error) {
	return &Context{
		log: logger.WithComponent("engine"),
	}, nil
}

// SetLogLevel applies a numeric verbosity (0 most severe only, 7 debug)
// to the engine's logger. Values outside the range are clamped.
func (c *Context) SetLogLevel(level int) {
	c.log = logger.WithComponent("engine").Level(levelFromVerbosity(level))
}

// levelFromVerbosity maps the syslog-style numeric verbosity carried by
// the service start argument onto a zerolog threshold.
func levelFromVerbosity(level int) zerolog.Level {
	switch {
	case level <= 3:
		return zerolog.ErrorLevel
	case level <= 5:
		return zerolog.WarnLevel
	case level == 6:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// LoadConfig validates and retains the relay configuration.
func (c *Context) LoadConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// Listen binds one UDP listener per configured listen address.
func (c *Context) Listen() error {
	if c.cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	for _, addr := range c.cfg.Listen {
		udpAddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			c.closeListeners()
			return fmt.Errorf("resolve %q: %w", addr, err)
		}
		conn, err := net.ListenUDP("udp", udpAddr)
		if err != nil {
			c.closeListeners()
			return fmt.Errorf("listen %q: %w", addr, err)
		}
		c.conns = append(c.conns, conn)
		c.log.Info().Str("addr", conn.LocalAddr().String()).Msg("Listening")
	}
	return nil
}

// Addrs returns the bound listener addresses.
func (c *Context) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(c.conns))
	for _, conn := range c.conns {
		addrs = append(addrs, conn.LocalAddr())
	}
	return addrs
}

// EventLoop returns the engine's event loop. Listen must have succeeded.
func (c *Context) EventLoop() (*Loop, error) {
	if len(c.conns) == 0 {
		return nil, fmt.Errorf("not listening")
	}
	if c.loop == nil {
		c.loop = newLoop(c.conns, c.cfg, c.log)
	}
	return c.loop, nil
}

// Destroy closes the listeners and releases configuration state. Safe to
// call more than once.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true

	c.closeListeners()
	c.cfg = nil
	c.loop = nil
}

func (c *Context) closeListeners() {
	for _, conn := range c.conns {
		conn.Close()
	}
	c.conns = nil
}
