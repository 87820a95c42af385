// Package event holds the generic event record the codec reads from and
// writes to.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Event is an ordered bag of named fields. Field order is the order in which
// names were first set; overwriting a field keeps its position.
//
// Event is not safe for concurrent mutation. The decoder creates a fresh
// Event per line.
type Event struct {
	names  []string
	values map[string]any
}

// New creates an empty Event.
func New() *Event {
	return &Event{values: make(map[string]any)}
}

// FromMap creates an Event from m. Fields are added in sorted key order so
// the result is deterministic.
func FromMap(m map[string]any) *Event {
	e := &Event{
		names:  make([]string, 0, len(m)),
		values: make(map[string]any, len(m)),
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Set(k, m[k])
	}
	return e
}

// Get returns the value of a field. field is either a top-level name or a
// bracket path such as [src][ip] that walks nested maps. A top-level name
// that itself looks like a path is matched first.
func (e *Event) Get(field string) (any, bool) {
	if v, ok := e.values[field]; ok {
		return v, true
	}
	path := ParsePath(field)
	if len(path) == 0 {
		return nil, false
	}
	cur, ok := e.values[path[0]]
	if !ok {
		return nil, false
	}
	for _, key := range path[1:] {
		cur, ok = child(cur, key)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether field resolves to a value.
func (e *Event) Has(field string) bool {
	_, ok := e.Get(field)
	return ok
}

// Set stores value under field. Bracket paths create intermediate maps as
// needed; a non-map value in the way is replaced.
func (e *Event) Set(field string, value any) {
	path := ParsePath(field)
	if len(path) <= 1 {
		if len(path) == 1 {
			field = path[0]
		}
		e.setTop(field, value)
		return
	}

	root, _ := e.values[path[0]].(map[string]any)
	if root == nil {
		root = make(map[string]any)
	}
	e.setTop(path[0], root)

	cur := root
	for _, key := range path[1 : len(path)-1] {
		next, _ := cur[key].(map[string]any)
		if next == nil {
			next = make(map[string]any)
			cur[key] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

func (e *Event) setTop(name string, value any) {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	if _, exists := e.values[name]; !exists {
		e.names = append(e.names, name)
	}
	e.values[name] = value
}

// Delete removes a top-level field.
func (e *Event) Delete(field string) {
	if _, ok := e.values[field]; !ok {
		return
	}
	delete(e.values, field)
	for i, n := range e.names {
		if n == field {
			e.names = append(e.names[:i], e.names[i+1:]...)
			break
		}
	}
}

// Fields returns the top-level field names in order.
func (e *Event) Fields() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Len returns the number of top-level fields.
func (e *Event) Len() int {
	return len(e.names)
}

// Map returns the fields as a plain map. Values that expose AsMap are
// converted so serializers without custom marshaler support see plain maps.
func (e *Event) Map() map[string]any {
	out := make(map[string]any, len(e.values))
	for k, v := range e.values {
		if m, ok := v.(interface{ AsMap() map[string]any }); ok {
			out[k] = m.AsMap()
			continue
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the event as a JSON object in field order.
func (e *Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range e.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalJSON(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalJSON(e.values[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the event with the fields of a JSON object, keeping
// the object's key order. Numbers are kept as json.Number so their text
// survives re-encoding.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("event must be a JSON object, got %v", tok)
	}

	e.names = nil
	e.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		e.setTop(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// ParsePath splits a bracket field reference like [a][b] into its parts.
// A name without brackets is a single-element path. Malformed bracket
// syntax returns nil.
func ParsePath(field string) []string {
	if field == "" {
		return nil
	}
	if !strings.HasPrefix(field, "[") {
		return []string{field}
	}
	var parts []string
	rest := field
	for rest != "" {
		if rest[0] != '[' {
			return nil
		}
		end := strings.IndexByte(rest, ']')
		if end <= 1 {
			return nil
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	return parts
}

func child(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		c, ok := m[key]
		return c, ok
	case map[string]string:
		c, ok := m[key]
		return c, ok
	case interface{ Get(string) (string, bool) }:
		return m.Get(key)
	}
	return nil, false
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
