package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marketplace-card-bot/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/marketplace-card-bot"

// Langfuse reads these span attributes from its OTLP endpoint
const (
	attrTraceName     = "langfuse.trace.name"
	attrUserID        = "langfuse.user.id"
	attrObsType       = "langfuse.observation.type"
	attrInput         = "langfuse.observation.input"
	attrOutput        = "langfuse.observation.output"
	attrLevel         = "langfuse.observation.level"
	attrStatusMessage = "langfuse.observation.status_message"
	attrMetadata      = "langfuse.observation.metadata."
	attrModel         = "gen_ai.request.model"
)

// TraceSink records each observation as one OpenTelemetry span
type TraceSink struct {
	tracer trace.Tracer
}

// NewTraceSink creates a sink on top of the given tracer provider
func NewTraceSink(tp trace.TracerProvider) *TraceSink {
	return &TraceSink{tracer: tp.Tracer(instrumentationName)}
}

// Start opens a generation span
func (s *TraceSink) Start(ctx context.Context, obs Observation) (context.Context, Handle) {
	attrs := []attribute.KeyValue{
		attribute.String(attrTraceName, obs.Name),
		attribute.String(attrUserID, obs.UserID),
		attribute.String(attrObsType, "generation"),
		attribute.String(attrModel, obs.Model),
		attribute.String(attrInput, obs.Input),
	}
	for k, v := range obs.Metadata {
		attrs = append(attrs, attribute.String(attrMetadata+k, v))
	}

	ctx, span := s.tracer.Start(ctx, obs.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, &spanHandle{span: span}
}

type spanHandle struct {
	span trace.Span
	once sync.Once
}

func (h *spanHandle) Finish(output string, err error) {
	h.once.Do(func() {
		if err != nil {
			h.span.RecordError(err)
			h.span.SetStatus(codes.Error, err.Error())
			h.span.SetAttributes(
				attribute.String(attrLevel, "ERROR"),
				attribute.String(attrStatusMessage, err.Error()),
				attribute.String(attrMetadata+"error_type", ErrorType(err)),
			)
			if kind := models.KindOf(err); kind != "" {
				h.span.SetAttributes(attribute.String(attrMetadata+"error_kind", string(kind)))
			}
		} else {
			h.span.SetAttributes(attribute.String(attrOutput, output))
			h.span.SetStatus(codes.Ok, "")
		}
		h.span.End()
	})
}

// ErrorType names the Go type of the first error in err's chain that is not
// a classification or fmt wrapper
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if _, ok := e.(*models.TurnError); ok {
			continue
		}
		name := fmt.Sprintf("%T", e)
		if name == "*fmt.wrapError" || name == "*fmt.wrapErrors" {
			continue
		}
		return name
	}
	return fmt.Sprintf("%T", err)
}
