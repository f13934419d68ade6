// Package config loads and validates the relay configuration file.
package config

import (
	"fmt"
	"net"
	"time"

	"dnsrelay/internal/logger"
)

// Transport names accepted for the upstream exchange.
const (
	TransportUDP = "udp"
	TransportTCP = "tcp"
	TransportTLS = "tls"
)

// UpstreamConfig describes the resolver queries are forwarded to.
type UpstreamConfig struct {
	// Address is the upstream resolver as host:port.
	Address string
	// Transport is one of "udp", "tcp" or "tls". "tls" is DNS-over-TLS,
	// the privacy transport.
	Transport string
	// TLSServerName is the name verified against the upstream certificate.
	// Required when Transport is "tls".
	TLSServerName string
	// Timeout bounds one upstream exchange.
	Timeout time.Duration
}

// Config is the full relay configuration.
type Config struct {
	// Listen holds the local UDP addresses the relay answers on.
	Listen []string
	// Upstream is the forwarding target.
	Upstream UpstreamConfig
	// IterationBound limits how long one event-loop iteration may wait
	// for an incoming query before returning control to the supervisor.
	IterationBound time.Duration
	// Logging configures the structured logger.
	Logging logger.Config
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: []string{"127.0.0.1:53"},
		Upstream: UpstreamConfig{
			Address:       "9.9.9.9:853",
			Transport:     TransportTLS,
			TLSServerName: "dns.quad9.net",
			Timeout:       2 * time.Second,
		},
		IterationBound: 250 * time.Millisecond,
		Logging:        logger.DefaultConfig(),
	}
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if len(c.Listen) == 0 {
		return fmt.Errorf("at least one listen address is required")
	}
	for _, addr := range c.Listen {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
	}

	if _, _, err := net.SplitHostPort(c.Upstream.Address); err != nil {
		return fmt.Errorf("invalid upstream address %q: %w", c.Upstream.Address, err)
	}

	switch c.Upstream.Transport {
	case TransportUDP, TransportTCP:
	case TransportTLS:
		if c.Upstream.TLSServerName == "" {
			return fmt.Errorf("upstream transport %q requires TLSServerName", TransportTLS)
		}
	default:
		return fmt.Errorf("unknown upstream transport %q", c.Upstream.Transport)
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %v", c.Upstream.Timeout)
	}
	if c.IterationBound <= 0 {
		return fmt.Errorf("iteration bound must be positive, got %v", c.IterationBound)
	}
	return nil
}
