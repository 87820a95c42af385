package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestParseOTELConfig_Defaults(t *testing.T) {
	cfg, err := ParseOTELConfig(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "cefcodec", cfg.ServiceName)
	assert.False(t, cfg.Enabled())
	assert.Equal(t, "localhost:4318", cfg.GetEndpoint())
	assert.Nil(t, cfg.ParseResourceAttributes())
}

func TestOTELConfig_Endpoint(t *testing.T) {
	cfg, err := ParseOTELConfig(map[string]string{
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
	})
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "collector:4318", cfg.GetEndpoint())

	cfg.TracesEndpoint = "traces:4318"
	assert.Equal(t, "traces:4318", cfg.GetEndpoint())
}

func TestOTELConfig_ParseResourceAttributes(t *testing.T) {
	cfg := &OTELConfig{ResourceAttributes: "env=prod, team = sec ,bad,=novalue"}

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("env", "prod"),
		attribute.String("team", "sec"),
	}, cfg.ParseResourceAttributes())
}
