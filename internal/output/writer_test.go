package output

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/cefcodec/internal/event"
)

func sampleEvent() *event.Event {
	ev := event.New()
	ev.Set("cef_version", 0)
	ev.Set("cef_vendor", "Vendor")
	ev.Set("cef_ext", map[string]any{"src": "10.0.0.1"})
	return ev
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)

	require.NoError(t, w.WriteEvent(sampleEvent()))
	require.NoError(t, w.WriteEvent(event.New()))
	assert.Empty(t, buf.String(), "output is buffered until Close")

	require.NoError(t, w.Close())
	assert.Equal(t, `{"cef_version":0,"cef_vendor":"Vendor","cef_ext":{"src":"10.0.0.1"}}`+"\n{}\n", buf.String())
}

func TestCBORWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCBORWriter(&buf)

	require.NoError(t, w.WriteEvent(sampleEvent()))
	require.NoError(t, w.WriteEvent(sampleEvent()))
	require.NoError(t, w.Close())

	dec := cbor.NewDecoder(&buf)
	for i := 0; i < 2; i++ {
		var got map[string]any
		require.NoError(t, dec.Decode(&got))
		assert.Equal(t, "Vendor", got["cef_vendor"])
		assert.Equal(t, uint64(0), got["cef_version"])
	}

	var extra map[string]any
	assert.Error(t, dec.Decode(&extra))
}

func TestCBORWriter_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	wa, wb := NewCBORWriter(&a), NewCBORWriter(&b)

	ev1 := event.New()
	ev1.Set("x", 1)
	ev1.Set("a", "b")
	ev2 := event.New()
	ev2.Set("a", "b")
	ev2.Set("x", 1)

	require.NoError(t, wa.WriteEvent(ev1))
	require.NoError(t, wb.WriteEvent(ev2))
	require.NoError(t, wa.Close())
	require.NoError(t, wb.Close())
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewLineWriter(&buf)

	require.NoError(t, w.WriteLine("CEF:0|a|b|c|d|e|5|\n"))
	require.NoError(t, w.WriteLine("CEF:0|a|b|c|d|e|5|x=y"))
	require.NoError(t, w.Close())

	assert.Equal(t, "CEF:0|a|b|c|d|e|5|\nCEF:0|a|b|c|d|e|5|x=y\n", buf.String())
}

func TestLineWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w := NewLineWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.WriteLine("CEF:0|V|P|1|2|N|5|")
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	assert.Equal(t, 20, bytes.Count(buf.Bytes(), []byte("CEF:0|V|P|1|2|N|5|\n")))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestClose_ReportsFlushError(t *testing.T) {
	w := NewJSONWriter(failingWriter{})
	require.NoError(t, w.WriteEvent(sampleEvent()))

	err := w.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNewEventSink(t *testing.T) {
	var buf bytes.Buffer

	s, err := NewEventSink("json", &buf)
	require.NoError(t, err)
	assert.IsType(t, &JSONWriter{}, s)

	s, err = NewEventSink("CBOR", &buf)
	require.NoError(t, err)
	assert.IsType(t, &CBORWriter{}, s)

	_, err = NewEventSink("xml", &buf)
	assert.ErrorContains(t, err, `"xml"`)
}

func TestCollector(t *testing.T) {
	var c Collector
	ev := sampleEvent()

	require.NoError(t, c.WriteEvent(ev))
	require.NoError(t, c.WriteLine("line"))
	require.NoError(t, c.Close())

	assert.Equal(t, []*event.Event{ev}, c.Events())
	assert.Equal(t, []string{"line"}, c.Lines())
}
