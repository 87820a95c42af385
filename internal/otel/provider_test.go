package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/cefcodec/internal/config"
)

func TestInitProvider_Disabled(t *testing.T) {
	tp, err := InitProvider(context.Background(), &config.OTELConfig{ServiceName: "cefcodec"}, "test")
	require.NoError(t, err)
	assert.Nil(t, tp)

	_, span := Tracer(tp).Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, ShutdownProvider(context.Background(), tp))
}

func TestInitProvider_Enabled(t *testing.T) {
	for _, endpoint := range []string{"localhost:4318", "http://localhost:4318/v1/traces"} {
		cfg := &config.OTELConfig{
			ServiceName:        "cefcodec",
			TracesEndpoint:     endpoint,
			ResourceAttributes: "env=test",
		}

		tp, err := InitProvider(context.Background(), cfg, "test")
		require.NoError(t, err, endpoint)
		require.NotNil(t, tp)

		_, span := Tracer(tp).Start(context.Background(), "check")
		assert.True(t, span.SpanContext().IsValid())
		span.End()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		// The exporter may fail to reach a collector; only shutdown itself matters.
		_ = ShutdownProvider(ctx, tp)
		cancel()
	}
}
