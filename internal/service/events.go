package service

import "github.com/rs/zerolog"

// Event log classes supported by the registered source.
type eventClass int

const (
	classError eventClass = iota
	classWarning
	classInfo
)

// Event identifiers, one per internal severity, most severe first. These
// are the IDs operators see in the event viewer.
const (
	eventIDPanic uint32 = iota + 1
	eventIDFatal
	eventIDError
	eventIDWarn
	eventIDInfo
	eventIDDebug
	eventIDTrace
)

// classify maps an internal severity to the event log class it is
// written under and its event identifier.
func classify(level zerolog.Level) (eventClass, uint32) {
	switch level {
	case zerolog.PanicLevel:
		return classError, eventIDPanic
	case zerolog.FatalLevel:
		return classError, eventIDFatal
	case zerolog.ErrorLevel:
		return classError, eventIDError
	case zerolog.WarnLevel:
		return classWarning, eventIDWarn
	case zerolog.InfoLevel:
		return classInfo, eventIDInfo
	case zerolog.DebugLevel:
		return classInfo, eventIDDebug
	default:
		return classInfo, eventIDTrace
	}
}
