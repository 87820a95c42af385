package cef

import (
	"fmt"
	"log/slog"

	"github.com/mrzor/cefcodec/internal/event"
)

// Decoded is one parsed CEF line.
type Decoded struct {
	Header Header

	// Syslog is the text before the last space of the version field.
	// HasSyslog distinguishes an empty prefix from none.
	Syslog    string
	HasSyslog bool

	// Message is the raw remainder after the seventh pipe, nil when the
	// line had fewer pipes.
	Message *string

	// Extensions is nil when Message is nil or contains no '='.
	Extensions *Extensions
}

// Event builds a fresh event carrying the decoded attributes. Absent header
// fields are not set.
func (d Decoded) Event() *event.Event {
	ev := event.New()
	ev.Set(FieldVersion, d.Header.Version)

	names := []string{FieldVendor, FieldProduct, FieldDeviceVersion, FieldSignatureID, FieldName, FieldSeverity}
	values := []string{d.Header.Vendor, d.Header.Product, d.Header.DeviceVersion, d.Header.SignatureID, d.Header.Name, d.Header.Severity}
	for i, name := range names {
		if d.Header.Has(i + 1) {
			ev.Set(name, values[i])
		}
	}

	if d.HasSyslog {
		ev.Set(FieldSyslog, d.Syslog)
	}
	if d.Extensions != nil {
		ev.Set(FieldExtensions, d.Extensions)
	}
	return ev
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithUnescape makes the decoder undo header and extension value escaping.
// Off by default: decoded fields keep their escapes.
func WithUnescape(on bool) DecoderOption {
	return func(d *Decoder) { d.unescape = on }
}

// WithDecoderWarnings sets the warning handler.
func WithDecoderWarnings(h WarningHandler) DecoderOption {
	return func(d *Decoder) { d.warn = h }
}

// WithDecoderLogger logs warnings to logger.
func WithDecoderLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) { d.warn = LogWarnings(logger) }
}

// Decoder turns CEF lines into events.
type Decoder struct {
	unescape bool
	warn     WarningHandler
}

// NewDecoder creates a Decoder. Warnings go to the default slog logger
// unless an option says otherwise.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	if d.warn == nil {
		d.warn = LogWarnings(nil)
	}
	return d
}

// Parse decodes line without building an event. Bytes are passed through
// as-is, including NUL and invalid UTF-8.
func (d *Decoder) Parse(line string) Decoded {
	hl := parseHeader(line)
	out := Decoded{
		Header:    hl.header,
		Syslog:    hl.syslog,
		HasSyslog: hl.hasSyslog,
		Message:   hl.message,
	}

	if !out.Header.Complete() {
		d.warn(Warning{
			Kind:   WarnShortHeader,
			Detail: fmt.Sprintf("found %d of %d header fields", out.Header.Fields, HeaderFields),
		})
	}

	if out.Message != nil {
		out.Extensions = ParseExtensions(*out.Message)
	}

	if d.unescape {
		unescapeDecoded(&out)
	}
	return out
}

// Decode parses line and hands the resulting event to sink exactly once.
// The only error returned is the sink's.
func (d *Decoder) Decode(line string, sink func(*event.Event) error) error {
	return sink(d.Parse(line).Event())
}

func unescapeDecoded(d *Decoded) {
	h := &d.Header
	for _, f := range []*string{&h.Vendor, &h.Product, &h.DeviceVersion, &h.SignatureID, &h.Name, &h.Severity} {
		*f = UnescapeHeaderField(*f)
	}
	if d.Extensions == nil {
		return
	}
	out := NewExtensions()
	d.Extensions.Range(func(k, v string) bool {
		out.Set(k, UnescapeExtensionValue(v))
		return true
	})
	d.Extensions = out
}
