//go:build windows

package service

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

// Install registers the relay with the service control manager and
// creates its event log source. Installing an already-installed service
// fails with the OS duplicate-registration error.
func Install(configPath string) error {
	exepath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	// Event log source first, mirroring the service record it belongs to.
	// The binary itself carries the event messages.
	if err := eventlog.Install(Name, exepath, true, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		return fmt.Errorf("create event log source: %w", err)
	}
	if err := setEventLogCategories(exepath); err != nil {
		return err
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.CreateService(Name, exepath, mgr.Config{
		ServiceType: windows.SERVICE_WIN32_OWN_PROCESS,
		StartType:   mgr.StartManual,
		DisplayName: displayName,
		Description: description,
	}, registrationArgs(configPath)...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer s.Close()

	return nil
}

// setEventLogCategories fills in the category registration that
// eventlog.Install does not cover.
func setEventLogCategories(exepath string) error {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE,
		`SYSTEM\CurrentControlSet\Services\EventLog\Application\`+Name, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open event log registry key: %w", err)
	}
	defer k.Close()

	if err := k.SetDWordValue("CategoryCount", 1); err != nil {
		return fmt.Errorf("set CategoryCount: %w", err)
	}
	if err := k.SetExpandStringValue("CategoryMessageFile", exepath); err != nil {
		return fmt.Errorf("set CategoryMessageFile: %w", err)
	}
	return nil
}

// Remove deletes the service record, then the event log source. A partial
// removal is not rolled back; each step reports its own error.
func Remove() error {
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

	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if err := eventlog.Remove(Name); err != nil {
		return fmt.Errorf("remove event log source: %w", err)
	}
	return nil
}
