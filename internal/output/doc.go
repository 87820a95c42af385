// Package output provides sinks for decoded events and encoded CEF lines.
//
// Sinks are pure writers:
//   - EventSink receives decoded events and serializes them (NDJSON or a
//     CBOR sequence)
//   - LineSink receives encoded CEF lines and writes them verbatim
//
// They do NOT:
//   - Parse or render CEF
//   - Resolve templates
//   - Decide what happens to a failed line
//
// Every writer buffers its output, is safe for concurrent use and must be
// flushed with Close.
package output
