// Package eventstream reads newline-delimited input and dispatches each line
// to a handler.
package eventstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// MaxLineBytes is the longest line a Stream accepts.
const MaxLineBytes = 1 << 20

// LineHandler processes one input line. lineNo starts at 1.
type LineHandler interface {
	HandleLine(ctx context.Context, lineNo int, line string) error
}

// LineHandlerFunc adapts a function to LineHandler.
type LineHandlerFunc func(ctx context.Context, lineNo int, line string) error

// HandleLine implements LineHandler.
func (f LineHandlerFunc) HandleLine(ctx context.Context, lineNo int, line string) error {
	return f(ctx, lineNo, line)
}

// Stats summarizes a finished run.
type Stats struct {
	Lines   int
	Skipped int
	Failed  int
}

// Stream reads lines from a reader and dispatches them to a handler.
type Stream struct {
	reader      io.Reader
	handler     LineHandler
	logger      *slog.Logger
	stopOnError bool
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the logger handler errors are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) { s.logger = logger }
}

// StopOnError makes Run return the first handler error instead of logging
// it and continuing.
func StopOnError(on bool) Option {
	return func(s *Stream) { s.stopOnError = on }
}

// New creates a new Stream with the given reader and line handler.
func New(reader io.Reader, handler LineHandler, opts ...Option) *Stream {
	s := &Stream{
		reader:  reader,
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads until EOF, a read error or cancellation of ctx. A trailing CR is
// removed from each line and blank lines are skipped. Cancelling ctx stops
// Run even while a read is blocked; a reader that is also an io.Closer is
// closed at that point.
func (s *Stream) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if c, ok := s.reader.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines, readErr := s.scan(ctx)

	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			break
		}
		lineNo++

		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			stats.Skipped++
			continue
		}
		stats.Lines++

		if err := s.handler.HandleLine(ctx, lineNo, line); err != nil {
			stats.Failed++
			if s.stopOnError {
				return stats, fmt.Errorf("line %d: %w", lineNo, err)
			}
			s.logger.Warn("handling line", "line", lineNo, "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if err := <-readErr; err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return stats, fmt.Errorf("line %d exceeds %d bytes: %w", lineNo+1, MaxLineBytes, err)
		}
		return stats, fmt.Errorf("reading input: %w", err)
	}
	return stats, nil
}

// scan reads lines in its own goroutine so Run can give up on a blocked
// read. The error channel receives exactly one value before lines closes.
func (s *Stream) scan(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(s.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scanner.Err()
	}()

	return lines, readErr
}
