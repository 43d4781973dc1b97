package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracerProviderUsesConsoleExporterWhenNoEndpoint(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider(context.Background(), Config{ServiceName: "oatty-test", ConsoleWriter: &buf})
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "unit-test-span")
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	assert.Contains(t, buf.String(), "unit-test-span")
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.PluginStartsTotal.WithLabelValues("search", "started").Inc()
	m.StepDuration.WithLabelValues("succeeded").Observe(0.5)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
