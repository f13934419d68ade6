//go:build windows

package service

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows/svc/eventlog"

	"dnsrelay/internal/supervisor"
)

// eventLogSink writes operator-facing diagnostics to the Windows Event
// Log under the relay's registered source. Each write opens and closes
// the source; diagnostics are rare enough that handle reuse buys nothing.
type eventLogSink struct{}

// NewEventSink returns the event log bridge.
func NewEventSink() supervisor.EventSink {
	return eventLogSink{}
}

func (eventLogSink) Event(level zerolog.Level, msg string) {
	elog, err := eventlog.Open(Name)
	if err != nil {
		// No event source - nothing more we can do here.
		return
	}
	defer elog.Close()

	class, id := classify(level)
	switch class {
	case classError:
		elog.Error(id, msg)
	case classWarning:
		elog.Warning(id, msg)
	default:
		elog.Info(id, msg)
	}
}

// ReportStartupError writes a startup error to the Windows Event Log.
// This ensures "net start" and Event Viewer show the actual error message
// even when the logger has not been initialized yet.
func ReportStartupError(err error) {
	// Ensure the event source is registered (idempotent if already exists)
	_ = eventlog.InstallAsEventCreate(Name, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, openErr := eventlog.Open(Name)
	if openErr != nil {
		return
	}
	defer elog.Close()

	elog.Error(eventIDFatal, fmt.Sprintf("Failed to start: %v", err))
}
