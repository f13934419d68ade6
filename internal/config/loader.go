package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"dnsrelay/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	Listen         []string          `json:"Listen"`
	Upstream       rawUpstreamConfig `json:"Upstream"`
	IterationBound string            `json:"IterationBound"`
	Logging        *logger.Config    `json:"Logging"`
}

type rawUpstreamConfig struct {
	Address       string `json:"Address"`
	Transport     string `json:"Transport"`
	TLSServerName string `json:"TLSServerName"`
	Timeout       string `json:"Timeout"`
}

// Load reads configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from JSON bytes. Missing fields keep their
// defaults; the result is validated before being returned.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Default()

	if len(raw.Listen) > 0 {
		cfg.Listen = raw.Listen
	}
	if raw.Upstream.Address != "" {
		cfg.Upstream.Address = raw.Upstream.Address
	}
	if raw.Upstream.Transport != "" {
		cfg.Upstream.Transport = raw.Upstream.Transport
		if raw.Upstream.Transport != TransportTLS {
			cfg.Upstream.TLSServerName = ""
		}
	}
	if raw.Upstream.TLSServerName != "" {
		cfg.Upstream.TLSServerName = raw.Upstream.TLSServerName
	}
	if raw.Upstream.Timeout != "" {
		d, err := parseDuration("Upstream.Timeout", raw.Upstream.Timeout)
		if err != nil {
			return nil, err
		}
		cfg.Upstream.Timeout = d
	}
	if raw.IterationBound != "" {
		d, err := parseDuration("IterationBound", raw.IterationBound)
		if err != nil {
			return nil, err
		}
		cfg.IterationBound = d
	}
	if raw.Logging != nil {
		applyLoggingDefaults(raw.Logging)
		cfg.Logging = *raw.Logging
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", field, value)
	}
	return d, nil
}

// applyLoggingDefaults fills zero-valued rotation settings so a sparse
// Logging section does not disable rotation entirely.
func applyLoggingDefaults(lc *logger.Config) {
	def := logger.DefaultConfig()
	if lc.Level == "" {
		lc.Level = def.Level
	}
	if lc.MaxSizeMB == 0 {
		lc.MaxSizeMB = def.MaxSizeMB
	}
	if lc.MaxBackups == 0 {
		lc.MaxBackups = def.MaxBackups
	}
	if lc.MaxAgeDays == 0 {
		lc.MaxAgeDays = def.MaxAgeDays
	}
}
