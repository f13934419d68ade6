//go:build !windows

package service

import (
	"errors"

	"dnsrelay/internal/config"
)

// ErrUnsupported is returned by service control operations on platforms
// without a service manager integration.
var ErrUnsupported = errors.New("service control is only supported on Windows")

// RunAsService is unavailable without a service control manager.
func RunAsService(cfg *config.Config) error {
	return ErrUnsupported
}

// IsService reports false; service detection only exists on Windows.
func IsService() bool {
	return false
}

func Install(configPath string) error { return ErrUnsupported }
func Remove() error                   { return ErrUnsupported }
func Start(logLevel int) error        { return ErrUnsupported }
func Stop() error                     { return ErrUnsupported }
