// Package eventprocessor routes input lines through the CEF codec to the
// output sinks.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│      eventstream (one line per call)    │
//	└─────────────────┬───────────────────────┘
//	                  │
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   eventprocessor                        │  ← Mode routing
//	│   - Opens a span per line               │
//	│   - Counts events and warnings          │
//	└─────────┬───────────────────────────────┘
//	          │
//	          ├──→ decode: CEF line ──→ cef.Decoder ──→ output.EventSink
//	          │                         - header split
//	          │                         - extension tokenizer
//	          │
//	          └──→ encode: JSON object ──→ event.Event ──→ cef.Encoder ──→ output.LineSink
//	                                                        - header templates
//	                                                        - extension rendering
//
// The HTTP server calls Decode and Encode directly with a per-request sink.
package eventprocessor
