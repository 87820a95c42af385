package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mrzor/cefcodec/internal/event"
	"github.com/mrzor/cefcodec/internal/eventstream"
	"github.com/mrzor/cefcodec/internal/output"
)

const contentTypeCBOR = "application/cbor-seq"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDecode decodes every non-blank line of the body.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var collected output.Collector
	h := eventstream.LineHandlerFunc(func(ctx context.Context, _ int, line string) error {
		return s.proc.Decode(ctx, line, &collected)
	})
	if _, err := eventstream.New(body, h, eventstream.StopOnError(true)).Run(r.Context()); err != nil {
		s.sendBodyError(w, r, err)
		return
	}

	events := collected.Events()
	if wantsCBOR(r) {
		w.Header().Set("Content-Type", contentTypeCBOR)
		sink := output.NewCBORWriter(w)
		for _, ev := range events {
			if err := sink.WriteEvent(ev); err != nil {
				s.logger.Error("writing CBOR response", "error", err)
				return
			}
		}
		if err := sink.Close(); err != nil {
			s.logger.Error("writing CBOR response", "error", err)
		}
		return
	}

	sendJSON(w, http.StatusOK, events)
}

// handleEncode encodes a JSON array of events or newline-delimited events.
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	body := bufio.NewReader(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))

	var collected output.Collector
	var err error
	if isJSONArray(body) {
		err = s.encodeArray(r.Context(), body, &collected)
	} else {
		h := eventstream.LineHandlerFunc(func(ctx context.Context, _ int, line string) error {
			ev := event.New()
			if err := ev.UnmarshalJSON([]byte(line)); err != nil {
				return fmt.Errorf("line is not a JSON object: %w", err)
			}
			return s.proc.Encode(ctx, ev, &collected)
		})
		_, err = eventstream.New(body, h, eventstream.StopOnError(true)).Run(r.Context())
	}
	if err != nil {
		s.sendBodyError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, strings.Join(collected.Lines(), ""))
}

func (s *Server) encodeArray(ctx context.Context, body io.Reader, sink output.LineSink) error {
	dec := json.NewDecoder(body)
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading array: %w", err)
	}
	for i := 0; dec.More(); i++ {
		ev := event.New()
		if err := dec.Decode(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if err := s.proc.Encode(ctx, ev, sink); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading array: %w", err)
	}
	return nil
}

func (s *Server) sendBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		sendError(w, r, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	sendError(w, r, err.Error(), http.StatusBadRequest)
}

// isJSONArray reports whether the first non-space byte of r is '['.
func isJSONArray(r *bufio.Reader) bool {
	for n := 1; ; n++ {
		peek, err := r.Peek(n)
		if len(peek) < n {
			return false
		}
		c := peek[n-1]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			if err != nil {
				return false
			}
			continue
		}
		return c == '['
	}
}

func wantsCBOR(r *http.Request) bool {
	return r.URL.Query().Get("format") == "cbor" ||
		strings.Contains(r.Header.Get("Accept"), "application/cbor")
}
