package cef

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/cefcodec/internal/event"
	"github.com/mrzor/cefcodec/internal/template"
)

func newTestEncoder(t *testing.T, opts Options) (*Encoder, *[]Warning) {
	t.Helper()
	warnings, h := collectWarnings()
	enc, err := NewEncoder(opts, WithEncoderWarnings(h))
	require.NoError(t, err)
	return enc, warnings
}

func TestEncoder_Defaults(t *testing.T) {
	enc, warnings := newTestEncoder(t, DefaultOptions())

	line := enc.Render(event.New())
	assert.Equal(t, "CEF:0|Elasticsearch|Logstash|1.0|Logstash|Logstash|6|\n", line)
	assert.Empty(t, *warnings)
}

func TestEncoder_NoFieldsEndsWithPipe(t *testing.T) {
	enc, _ := newTestEncoder(t, Options{Vendor: "V", Product: "P", Severity: "3"})

	ev := event.New()
	ev.Set("src", "10.0.0.1")
	line := enc.Render(ev)
	assert.True(t, strings.HasSuffix(line, "|\n"), "got %q", line)
}

func TestEncoder_EmptyTemplatesUseStaticDefaults(t *testing.T) {
	enc, warnings := newTestEncoder(t, Options{})

	line := enc.Render(event.New())
	assert.Equal(t, "CEF:0|Elasticsearch|Logstash|1.0|Logstash|Logstash|6|\n", line)
	require.Len(t, *warnings, 1)
	assert.Equal(t, WarnInvalidSeverity, (*warnings)[0].Kind)
}

func TestEncoder_HeaderTemplates(t *testing.T) {
	enc, _ := newTestEncoder(t, Options{
		Vendor:    "%{vendor}",
		Product:   "%{upper(product)}",
		Version:   "%{[agent][version]}",
		Signature: "%{missing}",
		Name:      "Alert on %{host}",
		Severity:  "%{sev}",
	})

	ev := event.New()
	ev.Set("vendor", "A|B")
	ev.Set("product", "web")
	ev.Set("[agent][version]", "8.1")
	ev.Set("host", "db\n01")
	ev.Set("sev", 8)

	assert.Equal(t, `CEF:0|A\|B|WEB|8.1|Logstash|Alert on db 01|8|`+"\n", enc.Render(ev))
}

func TestEncoder_Severity(t *testing.T) {
	tests := []struct {
		name     string
		sev      any
		want     string
		wantWarn bool
	}{
		{"integer", "5", "5", false},
		{"padded", " 3 ", "3", false},
		{"float", "7.5", "7", false},
		{"number", 2, "2", false},
		{"zero", "0", "6", true},
		{"ten", "10", "6", true},
		{"text", "abc", "6", true},
		{"negative", "-3", "6", true},
		{"suffix", "7.5x", "6", true},
		{"absent", nil, "6", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, warnings := newTestEncoder(t, Options{Severity: "%{sev}"})
			ev := event.New()
			if tt.sev != nil {
				ev.Set("sev", tt.sev)
			}

			header := enc.Header(ev)
			assert.True(t, strings.HasSuffix(header, "|"+tt.want), "got %q", header)
			if tt.wantWarn {
				require.Len(t, *warnings, 1)
				assert.Equal(t, WarnInvalidSeverity, (*warnings)[0].Kind)
			} else {
				assert.Empty(t, *warnings)
			}
		})
	}
}

func TestEncoder_Extensions(t *testing.T) {
	enc, _ := newTestEncoder(t, Options{
		Vendor:   "V",
		Product:  "P",
		Severity: "5",
		Fields:   []string{"src", "msg"},
	})

	ev := event.New()
	ev.Set("src", "10.1.1.1")
	ev.Set("msg", "hello world")

	line := enc.Render(ev)
	assert.True(t, strings.HasSuffix(line, "|src=10.1.1.1 msg=hello world\n"), "got %q", line)

	dec := NewDecoder(WithDecoderWarnings(func(Warning) {})).Parse(strings.TrimSuffix(line, "\n"))
	require.NotNil(t, dec.Extensions)
	assert.Equal(t, map[string]string{"src": "10.1.1.1", "msg": "hello world"}, dec.Extensions.Map())
}

func TestEncoder_FieldsAreCopied(t *testing.T) {
	fields := []string{"a"}
	enc, _ := newTestEncoder(t, Options{Severity: "5", Fields: fields})
	fields[0] = "b"

	assert.Equal(t, []string{"a"}, enc.Fields())
}

func TestEncoder_Encode(t *testing.T) {
	enc, _ := newTestEncoder(t, Options{Severity: "5", Fields: []string{"src"}})
	ev := event.New()
	ev.Set("src", "h")

	var (
		gotRec  Record
		gotLine string
		calls   int
	)
	err := enc.Encode(ev, func(rec Record, line string) error {
		calls++
		gotRec, gotLine = rec, line
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Same(t, ev, gotRec)
	assert.Equal(t, "CEF:0|Elasticsearch|Logstash|1.0|Logstash|Logstash|5|src=h\n", gotLine)
	assert.Equal(t, []string{"src"}, ev.Fields(), "event must not be modified")

	boom := errors.New("closed")
	err = enc.Encode(ev, func(Record, string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewEncoder_BadTemplate(t *testing.T) {
	_, err := NewEncoder(Options{Vendor: "%{1 +}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vendor")

	_, err = NewEncoder(Options{Severity: "%{(}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sev")
}

func TestEncoder_DefaultsTableIsImmutable(t *testing.T) {
	d := StaticDefaults()
	d.Vendor = "changed"

	assert.Equal(t, "Elasticsearch", StaticDefaults().Vendor)
	enc, _ := newTestEncoder(t, Options{})
	assert.Equal(t, "Elasticsearch", enc.Defaults().Vendor)
}

type upperRenderer string

func (r upperRenderer) Render(template.Record) string { return strings.ToUpper(string(r)) }

type upperEngine struct{}

func (upperEngine) Compile(text string) (template.Renderer, error) {
	return upperRenderer(text), nil
}

func TestEncoder_WithTemplateEngine(t *testing.T) {
	enc, err := NewEncoder(Options{Vendor: "acme", Product: "%{x}", Severity: "4"}, WithTemplateEngine(upperEngine{}))
	require.NoError(t, err)

	assert.Equal(t, "CEF:0|ACME|%{X}|1.0|Logstash|Logstash|4|\n", enc.Render(event.New()))
}

func TestEncoder_WithEncoderLogger(t *testing.T) {
	var logs bytes.Buffer
	enc, err := NewEncoder(Options{Severity: "11"}, WithEncoderLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	enc.Render(event.New())
	assert.Contains(t, logs.String(), "cef: invalid_severity")
	assert.Contains(t, logs.String(), `severity \"11\"`)
}
