package observability

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/marketplace-card-bot/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "marketplace-card-bot"

// Telemetry owns the tracer provider exporting to Langfuse
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
}

// Setup builds an OTLP exporter pointed at Langfuse. It returns nil when
// Langfuse is not configured.
func Setup(ctx context.Context, cfg *models.BotConfig) (*Telemetry, error) {
	if !cfg.LangfuseEnabled() {
		return nil, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpointURL(cfg.LangfuseHost)),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": basicAuth(cfg.LangfusePublicKey, cfg.LangfuseSecretKey),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &Telemetry{tracerProvider: tp}, nil
}

// Sink returns the observation sink, or nil when telemetry is disabled
func (t *Telemetry) Sink() Sink {
	if t == nil || t.tracerProvider == nil {
		return nil
	}
	return NewTraceSink(t.tracerProvider)
}

// Shutdown flushes pending spans
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.tracerProvider == nil {
		return nil
	}
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer shutdown: %w", err)
	}
	return nil
}

func endpointURL(host string) string {
	return strings.TrimRight(host, "/") + "/api/public/otel/v1/traces"
}

func basicAuth(publicKey, secretKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(publicKey+":"+secretKey))
}
