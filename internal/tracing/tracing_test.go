package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/LeventeLantos/sms-queue/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TracingConfig{
		Enabled:     true,
		Exporter:    "zipkin",
		SampleRate:  1,
		ServiceName: "sms-queue",
	}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
}

func TestSetup_StdoutExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Setup(context.Background(), config.TracingConfig{
		Enabled:     true,
		Exporter:    "stdout",
		SampleRate:  1,
		ServiceName: "sms-queue",
	}, zerolog.Nop())
	require.NoError(t, err)

	_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, isSDK)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpanAndEnd(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "lifecycle.MarkSent", attribute.String("sms.id", "abc"))
	End(span, nil)

	_, span = StartSpan(context.Background(), "lifecycle.Retry")
	End(span, errors.New("storage down"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "lifecycle.MarkSent", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("sms.id", "abc"))
	assert.Equal(t, codes.Unset, ended[0].Status().Code)

	assert.Equal(t, "lifecycle.Retry", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "storage down", ended[1].Status().Description)
}
