// Package cef implements a bidirectional codec for the ArcSight Common Event
// Format.
//
// A CEF line is a fixed seven field header followed by a free-form extension
// section of key=value pairs:
//
//	[syslogPrefix ]CEF:0|vendor|product|deviceVersion|signatureId|name|severity|key1=val1 key2=val2
//
// Two pipelines share the escaping primitives in escape.go:
//
//   - Decoder: line -> header split -> syslog prefix detection -> version
//     normalization -> extension tokenizer -> event.Event
//   - Encoder: Record + header templates -> template resolution -> header
//     sanitization -> extension rendering -> line
//
// # Escaping asymmetry
//
// The encoder escapes '\' and '|' in header fields and '\', '=' and newlines
// in extension values. The decoder does not undo any of it: a vendor of A|B
// encodes to A\|B and decodes back as the literal A\|B. WithUnescape opts a
// Decoder into unescaping, which changes observable output.
//
// # Failure policy
//
// Neither pipeline fails on bad input. Missing header fields are absent,
// a remainder without '=' yields no extensions, and an unusable severity
// falls back to the static default "6". Two conditions are reported as
// warnings through the WarningHandler: a header with fewer than seven
// fields and a severity that is not an integer in 1..9. Only sink errors
// are returned to the caller.
//
// # Concurrency
//
// Decoder and Encoder hold only configuration that is read-only after
// construction. Every call allocates its own intermediate values, so a
// single instance can serve many goroutines.
package cef
