package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mrzor/cefcodec/internal/event"
)

// EventSink receives decoded events.
type EventSink interface {
	WriteEvent(ev *event.Event) error
	Close() error
}

// LineSink receives encoded CEF lines.
type LineSink interface {
	WriteLine(line string) error
	Close() error
}

// Event output formats.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// NewEventSink returns the writer for format.
func NewEventSink(format string, w io.Writer) (EventSink, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "ndjson", "":
		return NewJSONWriter(w), nil
	case FormatCBOR:
		return NewCBORWriter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// Collector keeps everything written to it in memory.
type Collector struct {
	mu     sync.Mutex
	events []*event.Event
	lines  []string
}

// WriteEvent implements EventSink.
func (c *Collector) WriteEvent(ev *event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// WriteLine implements LineSink.
func (c *Collector) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	return nil
}

// Close implements EventSink and LineSink.
func (c *Collector) Close() error {
	return nil
}

// Events returns the collected events in write order.
func (c *Collector) Events() []*event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*event.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Lines returns the collected lines in write order.
func (c *Collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}
