//go:build windows

package service

import (
	"fmt"
	"strconv"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// Start asks the service manager to start the registered service, passing
// the numeric log level as a start argument when non-negative. Returns as
// soon as the start request is accepted; it does not wait for Running.
func Start(logLevel int) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(Name)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer s.Close()

	if logLevel >= 0 {
		err = s.Start(strconv.Itoa(logLevel))
	} else {
		err = s.Start()
	}
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	return nil
}

// Stop sends the stop control code. It does not wait for Stopped.
func Stop() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(Name)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer s.Close()

	if _, err := s.Control(svc.Stop); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	return nil
}
