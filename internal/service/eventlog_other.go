//go:build !windows

package service

import "dnsrelay/internal/supervisor"

// NewEventSink returns a discarding sink; the event log is a Windows-only
// concept.
func NewEventSink() supervisor.EventSink {
	return supervisor.NopEventSink{}
}

// ReportStartupError is a no-op on non-Windows platforms.
func ReportStartupError(err error) {
}
