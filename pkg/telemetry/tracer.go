package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for application spans
const TracerName = "github.com/verustcode/codesync"

// Span attribute keys
var (
	AttrProvider  = attribute.Key("codesync.provider")
	AttrProjectID = attribute.Key("codesync.project_id")
	AttrTaskID    = attribute.Key("codesync.task_id")
	AttrRepoURL   = attribute.Key("codesync.repo_url")
	AttrStatus    = attribute.Key("codesync.status")
)

// Tracer returns the application tracer
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span; the caller must End it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
