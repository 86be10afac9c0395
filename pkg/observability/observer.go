// Package observability reports what the mirror controller does with the
// records it tracks: opens, creates, patches, write-backs and disposals. The
// controller hands each one to an Observer as an Event; the "slog" observer
// logs it, "noop" drops it.
//
// A failed write-back arrives as
//
//	Event{Type: "mirror.writeback.failed", Level: LevelError,
//		Source: "mirror", Data: {"namespace": "counters", "id": "c1", ...}}
//
// Severity numbers match OpenTelemetry so events can be exported unchanged.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is an event's severity. Completed write-backs and patches are
// LevelVerbose; opens and disposals LevelInfo; a patch function error
// LevelWarning; a failed write-back LevelError.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the severity text, "DEBUG" for LevelVerbose.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel returns the slog level the "slog" observer logs l at.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names what happened, dot-separated from the emitting package:
// "mirror.open", "mirror.patch.failed".
type EventType string

// Event is one thing the controller did to a record. Data carries the
// namespace and record ID plus event-specific fields such as the error text.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives controller events. Write-back events arrive from each
// handle's queue goroutine, so OnEvent is called concurrently.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}
