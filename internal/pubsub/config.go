package pubsub

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// TracingConfig holds configuration for OpenTelemetry tracing of the bus.
type TracingConfig struct {
	Enabled     bool   `env:"PUBSUB_TRACING_ENABLED" envDefault:"false"`
	ServiceName string `env:"PUBSUB_TRACING_SERVICE_NAME" envDefault:"tavern"`
	ZipkinURL   string `env:"PUBSUB_TRACING_ZIPKIN_URL" envDefault:"http://localhost:9411/api/v2/spans"`
}

// DefaultTracingConfig returns tracing disabled with a local Zipkin endpoint.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "tavern",
		ZipkinURL:   "http://localhost:9411/api/v2/spans",
	}
}

// LoadTracingConfigFromEnv reads the PUBSUB_TRACING_* variables. Malformed
// values fall back to the defaults.
func LoadTracingConfigFromEnv() TracingConfig {
	cfg, err := env.ParseAs[TracingConfig]()
	if err != nil {
		slog.Warn("Invalid tracing configuration, using defaults", "error", err)
		return DefaultTracingConfig()
	}
	return cfg
}
