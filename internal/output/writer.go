package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/mrzor/cefcodec/internal/event"
)

// cborEncMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// event always produces the same bytes.
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("output: CBOR encoder initialization failed: " + err.Error())
	}
}

// bufferedWriter is the shared locking and flushing part of every writer.
type bufferedWriter struct {
	mu sync.Mutex
	bw *bufio.Writer
}

// Close flushes buffered output. The underlying writer is not closed.
func (b *bufferedWriter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.bw.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}

// JSONWriter writes events as newline-delimited JSON objects.
type JSONWriter struct {
	bufferedWriter
}

// NewJSONWriter creates a JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{bufferedWriter: bufferedWriter{bw: bufio.NewWriter(w)}}
}

// WriteEvent implements EventSink.
func (j *JSONWriter) WriteEvent(ev *event.Event) error {
	data, err := ev.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding event as JSON: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.bw.Write(data); err != nil {
		return err
	}
	return j.bw.WriteByte('\n')
}

// CBORWriter writes events as a CBOR sequence (RFC 8742), one map per event.
type CBORWriter struct {
	bufferedWriter
	enc *cbor.Encoder
}

// NewCBORWriter creates a CBORWriter on w.
func NewCBORWriter(w io.Writer) *CBORWriter {
	c := &CBORWriter{bufferedWriter: bufferedWriter{bw: bufio.NewWriter(w)}}
	c.enc = cborEncMode.NewEncoder(c.bw)
	return c
}

// WriteEvent implements EventSink.
func (c *CBORWriter) WriteEvent(ev *event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(ev.Map()); err != nil {
		return fmt.Errorf("encoding event as CBOR: %w", err)
	}
	return nil
}

// LineWriter writes CEF lines, adding a newline when one is missing.
type LineWriter struct {
	bufferedWriter
}

// NewLineWriter creates a LineWriter on w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{bufferedWriter: bufferedWriter{bw: bufio.NewWriter(w)}}
}

// WriteLine implements LineSink.
func (l *LineWriter) WriteLine(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.bw.WriteString(line); err != nil {
		return err
	}
	if !strings.HasSuffix(line, "\n") {
		return l.bw.WriteByte('\n')
	}
	return nil
}
