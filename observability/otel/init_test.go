package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" api-key = secret ,broken, =empty,tenant=vaults")
	require.Equal(t, map[string]string{"api-key": "secret", "tenant": "vaults"}, headers)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-team=risk")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "")
	t.Setenv("VAULTD_OTEL_ENABLED", "")

	cfg := FromEnv("vaultd", "test")
	require.Equal(t, "collector:4318", cfg.Endpoint)
	require.True(t, cfg.Insecure)
	require.True(t, cfg.Traces)
	require.True(t, cfg.Metrics)
	require.Equal(t, "risk", cfg.Headers["x-team"])

	t.Setenv("VAULTD_OTEL_ENABLED", "false")
	require.False(t, FromEnv("vaultd", "test").Traces)
}

func TestFromEnvDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("VAULTD_OTEL_ENABLED", "")
	cfg := FromEnv("vaultd", "")
	require.False(t, cfg.Traces)
	require.False(t, cfg.Metrics)
}

func TestInitWithoutExporters(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "vaultd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestFromEnvSampleRatio(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	cfg := FromEnv("vaultd", "prod")
	require.False(t, cfg.Insecure)
	require.Equal(t, 0.25, cfg.SampleRatio)
}

func TestShutdownAllJoinsErrors(t *testing.T) {
	var order []int
	first := errors.New("first")
	err := shutdownAll(context.Background(), []shutdownFunc{
		func(context.Context) error { order = append(order, 1); return first },
		func(context.Context) error { order = append(order, 2); return nil },
	})
	require.ErrorIs(t, err, first)
	require.Equal(t, []int{2, 1}, order)
}
