package cef

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mrzor/cefcodec/internal/template"
)

// Options configures an Encoder. Every header option is a template that is
// resolved against the record being encoded.
type Options struct {
	Vendor    string
	Product   string
	Version   string
	Signature string
	Name      string
	Severity  string

	// Fields names the record fields emitted as extensions, in order. Nil
	// means no extensions.
	Fields []string
}

// Defaults is the static fallback for each header field. It is used when a
// template resolves to the empty string.
type Defaults struct {
	Vendor    string
	Product   string
	Version   string
	Signature string
	Name      string
	Severity  string
}

var staticDefaults = Defaults{
	Vendor:    "Elasticsearch",
	Product:   "Logstash",
	Version:   "1.0",
	Signature: "Logstash",
	Name:      "Logstash",
	Severity:  "6",
}

// StaticDefaults returns the fallback table every Encoder uses.
func StaticDefaults() Defaults {
	return staticDefaults
}

// DefaultOptions returns Options with every header set to its static default
// and no extension fields.
func DefaultOptions() Options {
	d := StaticDefaults()
	return Options{
		Vendor:    d.Vendor,
		Product:   d.Product,
		Version:   d.Version,
		Signature: d.Signature,
		Name:      d.Name,
		Severity:  d.Severity,
	}
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithTemplateEngine sets the engine header templates are compiled with.
func WithTemplateEngine(engine template.Engine) EncoderOption {
	return func(e *Encoder) { e.engine = engine }
}

// WithEncoderWarnings sets the warning handler.
func WithEncoderWarnings(h WarningHandler) EncoderOption {
	return func(e *Encoder) { e.warn = h }
}

// WithEncoderLogger logs warnings to logger.
func WithEncoderLogger(logger *slog.Logger) EncoderOption {
	return func(e *Encoder) { e.warn = LogWarnings(logger) }
}

// headerSlot pairs a compiled template with its static fallback.
type headerSlot struct {
	name     string
	tmpl     template.Renderer
	fallback string
}

// Encoder renders records as CEF lines. It is immutable after NewEncoder.
type Encoder struct {
	engine   template.Engine
	warn     WarningHandler
	defaults Defaults

	headers  []headerSlot
	severity template.Renderer
	fields   []string
}

// NewEncoder compiles the header templates in opts. It fails only when a
// template cannot be compiled.
func NewEncoder(opts Options, eo ...EncoderOption) (*Encoder, error) {
	e := &Encoder{
		engine:   template.Default,
		defaults: StaticDefaults(),
	}
	for _, o := range eo {
		o(e)
	}
	if e.warn == nil {
		e.warn = LogWarnings(nil)
	}

	specs := []struct {
		name, text, fallback string
	}{
		{"vendor", opts.Vendor, e.defaults.Vendor},
		{"product", opts.Product, e.defaults.Product},
		{"version", opts.Version, e.defaults.Version},
		{"signature", opts.Signature, e.defaults.Signature},
		{"name", opts.Name, e.defaults.Name},
	}
	for _, s := range specs {
		tmpl, err := e.engine.Compile(s.text)
		if err != nil {
			return nil, fmt.Errorf("compile %s template: %w", s.name, err)
		}
		e.headers = append(e.headers, headerSlot{name: s.name, tmpl: tmpl, fallback: s.fallback})
	}

	sev, err := e.engine.Compile(opts.Severity)
	if err != nil {
		return nil, fmt.Errorf("compile sev template: %w", err)
	}
	e.severity = sev

	if opts.Fields != nil {
		e.fields = make([]string, len(opts.Fields))
		copy(e.fields, opts.Fields)
	}
	return e, nil
}

// Defaults returns the fallback table of e.
func (e *Encoder) Defaults() Defaults {
	return e.defaults
}

// Fields returns the configured extension field names.
func (e *Encoder) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Header renders the header of rec, including the leading CEF:0 and without
// a trailing pipe.
func (e *Encoder) Header(rec Record) string {
	parts := make([]string, 0, HeaderFields)
	parts = append(parts, "CEF:0")
	for _, h := range e.headers {
		v := SanitizeHeaderField(h.tmpl.Render(rec))
		if v == "" {
			v = h.fallback
		}
		parts = append(parts, v)
	}
	parts = append(parts, e.renderSeverity(rec))
	return strings.Join(parts, "|")
}

func (e *Encoder) renderSeverity(rec Record) string {
	raw := strings.TrimSpace(SanitizeHeaderField(e.severity.Render(rec)))
	sev, ok := NormalizeSeverity(raw, e.defaults.Severity)
	if !ok {
		e.warn(Warning{
			Kind:   WarnInvalidSeverity,
			Detail: fmt.Sprintf("severity %q is not an integer in 1..9, using %s", raw, e.defaults.Severity),
		})
	}
	return sev
}

// Render returns the full CEF line for rec, terminated by a newline.
func (e *Encoder) Render(rec Record) string {
	return e.Header(rec) + "|" + RenderExtensions(rec, e.fields) + "\n"
}

// Encode renders rec and hands it to sink with the line. rec is not
// modified. The only error returned is the sink's.
func (e *Encoder) Encode(rec Record, sink func(Record, string) error) error {
	return sink(rec, e.Render(rec))
}
