package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/cefcodec/internal/event"
)

func testEvent() *event.Event {
	ev := event.New()
	ev.Set("host", "web-1")
	ev.Set("@timestamp", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	ev.Set("[src][ip]", "10.0.0.1")
	ev.Set("[user][name]", "alice")
	ev.Set("tags", []any{"a", "b"})
	ev.Set("port", 443)
	return ev
}

func TestTemplate_Render(t *testing.T) {
	ev := testEvent()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"literal", "Logstash", "Logstash"},
		{"empty", "", ""},
		{"field", "%{host}", "web-1"},
		{"at field", "%{@timestamp}", "2024-01-02T03:04:05.000Z"},
		{"bracket path", "%{[src][ip]}", "10.0.0.1"},
		{"mixed", "from %{host}:%{port} done", "from web-1:443 done"},
		{"structured", "%{tags}", `["a","b"]`},
		{"dotted expression", "%{user.name}", "alice"},
		{"function", "%{upper(host)}", "WEB-1"},
		{"coalesce", `%{sev ?? "3"}`, "3"},
		{"missing", "%{nope}", ""},
		{"missing in text", "x%{nope}y", "xy"},
		{"empty ref", "%{}", "%{}"},
		{"empty ref beside a field", "a%{ }b%{host}", "a%{ }bweb-1"},
		{"spaces trimmed", "%{ host }", "web-1"},
		{"runtime error", "%{int(host)}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Compile(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tmpl.Render(ev))
		})
	}
}

func TestTemplate_Static(t *testing.T) {
	assert.True(t, MustCompile("plain text").Static())
	assert.True(t, MustCompile("").Static())
	assert.False(t, MustCompile("%{host}").Static())
	assert.True(t, MustCompile("a%{}b").Static())
	assert.Equal(t, "a %{b}", MustCompile("a %{b}").String())
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile("%{1 +}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"1 +"`)

	// Names that are not valid expressions are still fine as field refs.
	for _, text := range []string{"%{@timestamp}", "%{[a][b]}", "%{event-id}"} {
		_, err := Compile(text)
		assert.NoError(t, err, text)
	}
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("%{(}") })
}

// getOnly exposes fields but no map of them.
type getOnly map[string]any

func (g getOnly) Get(field string) (any, bool) {
	v, ok := g[field]
	return v, ok
}

func TestTemplate_RecordWithoutMap(t *testing.T) {
	rec := getOnly{"host": "h1"}

	assert.Equal(t, "h1", MustCompile("%{host}").Render(rec))
	assert.Equal(t, "", MustCompile("%{user.name}").Render(rec))
}

func TestExprEngine(t *testing.T) {
	r, err := Default.Compile("%{host}!")
	require.NoError(t, err)
	assert.Equal(t, "web-1!", r.Render(testEvent()))

	_, err = ExprEngine{}.Compile("%{1 +}")
	assert.Error(t, err)
}
