package cef

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mrzor/cefcodec/internal/event"
)

// pairSeparator finds the start of the next key=value pair: a space, a bare
// word key and an equals sign. A value that itself contains " word=" is split
// there; CEF has no value quoting to prevent it.
var pairSeparator = regexp.MustCompile(` ([\w.]+)=`)

// Extensions is the ordered key=value section of a CEF line. Keys keep the
// position they were first seen at; a repeated key overwrites the earlier
// value in place.
type Extensions struct {
	keys   []string
	values map[string]string
}

// NewExtensions creates an empty extension map.
func NewExtensions() *Extensions {
	return &Extensions{values: make(map[string]string)}
}

// Set stores value under key.
func (e *Extensions) Set(key, value string) {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns the value stored under key.
func (e *Extensions) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Len returns the number of distinct keys.
func (e *Extensions) Len() int {
	return len(e.keys)
}

// Keys returns the keys in order.
func (e *Extensions) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Range calls fn for each pair in order until fn returns false.
func (e *Extensions) Range(fn func(key, value string) bool) {
	for _, k := range e.keys {
		if !fn(k, e.values[k]) {
			return
		}
	}
}

// Map returns a copy of the pairs.
func (e *Extensions) Map() map[string]string {
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// AsMap returns a copy of the pairs typed for generic serializers.
func (e *Extensions) AsMap() map[string]any {
	out := make(map[string]any, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the pairs as a JSON object in key order.
func (e *Extensions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(e.values[k]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseExtensions tokenizes the remainder after the seventh header pipe.
// It returns nil when message contains no '='.
//
// The first pair is split on its first '='. Every later pair starts at a
// match of " key=" and runs to the next match. A trailing key with no value
// decodes to the empty string, not to the single space a padded split
// would leave behind.
func ParseExtensions(message string) *Extensions {
	if !strings.Contains(message, "=") {
		return nil
	}

	msg := strings.TrimSpace(message)
	padded := strings.HasSuffix(msg, "=")
	if padded {
		msg += " "
	}

	ext := NewExtensions()
	locs := pairSeparator.FindAllStringSubmatchIndex(msg, -1)

	first := msg
	if len(locs) > 0 {
		first = msg[:locs[0][0]]
	}
	lastKey, lastValue, _ := strings.Cut(first, "=")
	ext.Set(lastKey, lastValue)

	for i, loc := range locs {
		end := len(msg)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		lastKey, lastValue = msg[loc[2]:loc[3]], msg[loc[1]:end]
		ext.Set(lastKey, lastValue)
	}

	if padded {
		ext.Set(lastKey, strings.TrimSuffix(lastValue, " "))
	}
	return ext
}

// ValueKind tags how an extension value was produced.
type ValueKind uint8

const (
	// Scalar values are strings, numbers, booleans and timestamps.
	Scalar ValueKind = iota + 1
	// Structured values are lists or objects carried as compact JSON.
	Structured
)

func (k ValueKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Structured:
		return "structured"
	}
	return "unknown"
}

// Value is an extension value resolved to text before escaping.
type Value struct {
	Kind ValueKind
	Text string
}

// ResolveValue converts a field value into an extension value. ok is false
// for nil, which is rendered as no pair at all.
func ResolveValue(v any) (val Value, ok bool) {
	if v == nil {
		return Value{}, false
	}
	text, structured := event.FormatValue(v)
	if structured {
		return Value{Kind: Structured, Text: text}, true
	}
	return Value{Kind: Scalar, Text: text}, true
}

// RenderExtensions renders the named fields of rec as space separated
// key=value pairs. Absent fields produce nothing.
func RenderExtensions(rec Record, fields []string) string {
	pairs := make([]string, 0, len(fields))
	for _, name := range fields {
		raw, ok := rec.Get(name)
		if !ok {
			continue
		}
		val, ok := ResolveValue(raw)
		if !ok {
			continue
		}
		pairs = append(pairs, SanitizeExtensionKey(name)+"="+SanitizeExtensionValue(val.Text))
	}
	return strings.Join(pairs, " ")
}
