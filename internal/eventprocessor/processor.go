package eventprocessor

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mrzor/cefcodec/internal/cef"
	"github.com/mrzor/cefcodec/internal/config"
	"github.com/mrzor/cefcodec/internal/event"
	"github.com/mrzor/cefcodec/internal/metrics"
	"github.com/mrzor/cefcodec/internal/output"
)

// Mode selects what HandleLine does with a line.
type Mode string

const (
	// ModeDecode reads CEF lines and writes events.
	ModeDecode Mode = "decode"
	// ModeEncode reads JSON events and writes CEF lines.
	ModeEncode Mode = "encode"
)

// Option configures a Processor.
type Option func(*Processor)

// WithEventSink sets where HandleLine writes decoded events.
func WithEventSink(s output.EventSink) Option {
	return func(p *Processor) { p.events = s }
}

// WithLineSink sets where HandleLine writes encoded lines.
func WithLineSink(s output.LineSink) Option {
	return func(p *Processor) { p.lines = s }
}

// WithTracer sets the tracer used for per-line spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Processor) { p.tracer = t }
}

// WithMetrics sets the metrics to record into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger sets the logger codec warnings go to.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// Processor coordinates line processing.
// It owns one decoder and one encoder built from the codec configuration.
type Processor struct {
	mode    Mode
	decoder *cef.Decoder
	encoder *cef.Encoder

	events output.EventSink
	lines  output.LineSink

	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a processor for mode. HandleLine needs the sink matching the
// mode; Decode and Encode take theirs per call.
func New(mode Mode, codec config.CodecConfig, opts ...Option) (*Processor, error) {
	if mode != ModeDecode && mode != ModeEncode {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	p := &Processor{
		mode:   mode,
		tracer: noop.NewTracerProvider().Tracer("eventprocessor"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.decoder = cef.NewDecoder(
		cef.WithUnescape(codec.Unescape),
		cef.WithDecoderWarnings(p.warn),
	)
	enc, err := cef.NewEncoder(codec.EncoderOptions(), cef.WithEncoderWarnings(p.warn))
	if err != nil {
		return nil, fmt.Errorf("building encoder: %w", err)
	}
	p.encoder = enc
	return p, nil
}

// Mode returns the mode HandleLine runs in.
func (p *Processor) Mode() Mode {
	return p.mode
}

func (p *Processor) warn(w cef.Warning) {
	p.logger.Warn("cef: "+string(w.Kind), "detail", w.Detail)
	if p.metrics != nil {
		p.metrics.RecordWarning(string(w.Kind))
	}
}

func (p *Processor) record(direction string, err error, lineBytes int) {
	if p.metrics != nil {
		p.metrics.RecordEvent(direction, err == nil, lineBytes)
	}
}

// HandleLine decodes or encodes line depending on the mode and writes the
// result to the configured sink.
func (p *Processor) HandleLine(ctx context.Context, lineNo int, line string) error {
	ctx, span := p.tracer.Start(ctx, "cef."+string(p.mode),
		trace.WithAttributes(attribute.Int("cef.line_no", lineNo)),
	)
	defer span.End()

	var err error
	switch {
	case p.mode == ModeDecode && p.events != nil:
		err = p.Decode(ctx, line, p.events)
	case p.mode == ModeEncode && p.lines != nil:
		err = p.encodeJSON(ctx, line, p.lines)
	default:
		err = fmt.Errorf("no sink configured for %s", p.mode)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Decode parses one CEF line and writes the event to sink.
func (p *Processor) Decode(ctx context.Context, line string, sink output.EventSink) error {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("cef.line_bytes", len(line)))

	err := p.decoder.Decode(line, func(ev *event.Event) error {
		span.SetAttributes(attribute.Int("cef.fields", ev.Len()))
		return sink.WriteEvent(ev)
	})
	p.record(metrics.DirectionDecode, err, len(line))
	if err != nil {
		return fmt.Errorf("writing decoded event: %w", err)
	}
	return nil
}

// Encode renders ev as a CEF line and writes it to sink.
func (p *Processor) Encode(ctx context.Context, ev *event.Event, sink output.LineSink) error {
	var size int
	err := p.encoder.Encode(ev, func(_ cef.Record, line string) error {
		size = len(line)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("cef.line_bytes", size))
		return sink.WriteLine(line)
	})
	p.record(metrics.DirectionEncode, err, size)
	if err != nil {
		return fmt.Errorf("writing encoded line: %w", err)
	}
	return nil
}

func (p *Processor) encodeJSON(ctx context.Context, line string, sink output.LineSink) error {
	ev := event.New()
	if err := ev.UnmarshalJSON([]byte(line)); err != nil {
		p.record(metrics.DirectionEncode, err, 0)
		return fmt.Errorf("line is not a JSON object: %w", err)
	}
	return p.Encode(ctx, ev, sink)
}
