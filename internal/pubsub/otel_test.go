package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestBridgeWithTracer_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	bridge := NewWatermillBridgeWithTracer(tp.Tracer("test"))
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{}, 1)
	require.NoError(t, bridge.Subscribe(ctx, "table.log.changed", func(ctx context.Context, msg Message) error {
		done <- struct{}{}
		return nil
	}))

	require.NoError(t, bridge.Publish(ctx, Message{Topic: "table.log.changed", UserID: "abc", Payload: []byte(`{}`)}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}

	assert.Eventually(t, func() bool {
		names := map[string]bool{}
		for _, s := range recorder.Ended() {
			names[s.Name()] = true
		}
		return names["pubsub.publish.table.log.changed"] && names["pubsub.process.table.log.changed"]
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSetupOTel(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tracing", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, cleanup)

		_, span := tracer.Start(ctx, "test")
		span.End()
		cleanup()
	})

	t.Run("enabled tracing with unreachable collector", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{
			Enabled:     true,
			ServiceName: "test-service",
			ZipkinURL:   "http://invalid-url:9411/api/v2/spans",
		})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		cleanup()
	})
}

func TestLoadTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PUBSUB_TRACING_ENABLED", "true")
	t.Setenv("PUBSUB_TRACING_SERVICE_NAME", "tavern-test")

	cfg := LoadTracingConfigFromEnv()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "tavern-test", cfg.ServiceName)
	assert.Equal(t, DefaultTracingConfig().ZipkinURL, cfg.ZipkinURL)

	t.Setenv("PUBSUB_TRACING_ENABLED", "not-a-bool")
	assert.Equal(t, DefaultTracingConfig(), LoadTracingConfigFromEnv())
}
