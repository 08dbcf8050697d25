package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ServiceVersion = "9.9.9"

	res, err := newResource(cfg)
	require.NoError(t, err)

	found := map[string]string{}
	for _, attr := range res.Attributes() {
		found[string(attr.Key)] = attr.Value.AsString()
	}
	assert.Equal(t, "pluginbuild", found["service.name"])
	assert.Equal(t, "9.9.9", found["service.version"])
}

func TestNewTracerProvider_CustomExporter(t *testing.T) {
	cfg := NewDefaultConfig()
	res, err := newResource(cfg)
	require.NoError(t, err)

	exp := tracetest.NewInMemoryExporter()
	tp, err := newTracerProvider(context.Background(), cfg, res, exp)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "Build SamplePlugin")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "Build SamplePlugin", spans[0].Name)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Metrics.Enabled = false

	mp, err := newMeterProvider(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, mp)
}

func TestNewMeterProvider_HTTPExporter(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Protocol = ProtocolHTTP
	cfg.Endpoint = "http://localhost:4318"
	res, err := newResource(cfg)
	require.NoError(t, err)

	// Exporter creation does not dial.
	mp, err := newMeterProvider(context.Background(), cfg, res, nil)
	require.NoError(t, err)
	require.NotNil(t, mp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = mp.Shutdown(ctx)
}

func TestNew_WithExporters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	spans := tracetest.NewInMemoryExporter()
	tel, err := New(context.Background(), cfg,
		WithTraceExporter(spans),
		WithMetricExporter(noopMetricExporter{}),
	)
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	assert.False(t, tel.Health().Degraded)

	_, span := tel.Tracer("test").Start(context.Background(), "run")
	span.End()
	require.NoError(t, tel.ForceFlush(context.Background()))
	assert.Len(t, spans.GetSpans(), 1)

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "localhost:4318", stripScheme("http://localhost:4318"))
	assert.Equal(t, "otel.example.com", stripScheme("https://otel.example.com"))
	assert.Equal(t, "localhost:4317", stripScheme("localhost:4317"))
}

type noopMetricExporter struct{}

func (noopMetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (noopMetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (noopMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (noopMetricExporter) ForceFlush(context.Context) error                        { return nil }
func (noopMetricExporter) Shutdown(context.Context) error                          { return nil }
