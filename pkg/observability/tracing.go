package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for pipeline operations.
const TracerName = "meeting-pipeline"

// Span attribute keys
const (
	AttrMeetingID  = "meeting_id"
	AttrOwnerID    = "owner_id"
	AttrStage      = "stage"
	AttrSegments   = "segments"
	AttrDurationMs = "duration_ms"
	AttrErrorType  = "error_type"
)

// SpanProcessMeeting is the root span for one pipeline run.
const SpanProcessMeeting = "meeting.process"

// Tracer provides distributed tracing for pipeline operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a pipeline tracer.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartMeetingSpan starts the root span for processing a meeting.
func (t *Tracer) StartMeetingSpan(ctx context.Context, meetingID, ownerID int64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanProcessMeeting,
		trace.WithAttributes(
			attribute.Int64(AttrMeetingID, meetingID),
			attribute.Int64(AttrOwnerID, ownerID),
		),
	)
}

// StartStageSpan starts a span for a pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("meeting.stage.%s", stage),
		trace.WithAttributes(attribute.String(AttrStage, stage)),
	)
}

// RecordError records an error and marks the span failed.
func RecordError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// GetTraceID returns the trace ID from the context, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
