package cef

import (
	"log/slog"

	"github.com/mrzor/cefcodec/internal/event"
)

// Record is the event capability the codec depends on.
type Record interface {
	Get(field string) (any, bool)
	Set(field string, value any)
}

var _ Record = (*event.Event)(nil)

// Attribute names set on decoded events.
const (
	FieldVersion       = "cef_version"
	FieldVendor        = "cef_vendor"
	FieldProduct       = "cef_product"
	FieldDeviceVersion = "cef_device_version"
	FieldSignatureID   = "cef_sigid"
	FieldName          = "cef_name"
	FieldSeverity      = "cef_severity"
	FieldSyslog        = "syslog"
	FieldExtensions    = "cef_ext"
)

// WarningKind identifies a recoverable problem with a line or event.
type WarningKind string

const (
	// WarnShortHeader means the line had fewer than seven header fields.
	WarnShortHeader WarningKind = "short_header"
	// WarnInvalidSeverity means the resolved severity was not an integer
	// in 1..9 and the default was used.
	WarnInvalidSeverity WarningKind = "invalid_severity"
)

// Warning describes a problem that was recovered from.
type Warning struct {
	Kind   WarningKind
	Detail string
}

// WarningHandler receives warnings. It must be safe for concurrent use when
// the codec is shared between goroutines.
type WarningHandler func(Warning)

// LogWarnings returns a handler that logs each warning at warn level.
func LogWarnings(logger *slog.Logger) WarningHandler {
	return func(w Warning) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.Warn("cef: "+string(w.Kind), "detail", w.Detail)
	}
}
