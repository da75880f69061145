package observability

import (
	"context"
	"os"

	"feedbackapp/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// SetupObservability initializes the tracing, metrics, and logging pipelines
// for a service. serviceName, when non-empty, overrides the configured one.
// The returned providers are nil for pipelines the config disables.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string) (trace.TracerProvider, *metric.MeterProvider, *Logger, error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	// Zero-code instrumentation agents read the service identity from the
	// environment.
	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, nil, nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, nil, nil, err
	}

	logger := NewLogger(cfg)

	var tp trace.TracerProvider
	if cfg.EnableTracing {
		var err error
		tp, err = newTracerProvider(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		otel.SetTracerProvider(tp)
		logger.Info(context.Background(), "Tracing enabled", map[string]interface{}{
			"service_name": cfg.ServiceName,
			"auto_sdk":     cfg.UseAutoSDK,
		})

		if err := InitTracing(cfg); err != nil {
			return nil, nil, nil, err
		}
		InitGlobalTracer()
	}

	var mp *metric.MeterProvider
	if cfg.EnableMetrics {
		var err error
		mp, err = InitMetrics(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return tp, mp, logger, nil
}

// newTracerProvider picks between the Auto SDK provider (for zero-code
// instrumentation agents) and the standard OTLP-exporting SDK.
func newTracerProvider(cfg *config.OpenTelemetryConfig) (trace.TracerProvider, error) {
	if cfg.UseAutoSDK {
		return autosdk.TracerProvider(), nil
	}
	return InitStandardTracing(cfg)
}
