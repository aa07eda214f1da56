// Package otel holds the span attribute keys and helpers used by the sync pipeline.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Connection and provider call attributes.
const (
	AttrConnectionID = attribute.Key("ledgersync.connection.id")
	AttrOperation    = attribute.Key("ledgersync.provider.operation")
	AttrAttempt      = attribute.Key("ledgersync.provider.attempt")
	AttrErrorKind    = attribute.Key("ledgersync.error.kind")
)

// Per-page attributes. Counts are the raw lengths of the page's change sets.
const (
	AttrPage      = attribute.Key("ledgersync.sync.page")
	AttrHasCursor = attribute.Key("ledgersync.sync.has_cursor")
	AttrHasMore   = attribute.Key("ledgersync.sync.has_more")
	AttrAdded     = attribute.Key("ledgersync.sync.added")
	AttrModified  = attribute.Key("ledgersync.sync.modified")
	AttrRemoved   = attribute.Key("ledgersync.sync.removed")
)

// StartSpan is tracer.Start that tolerates a nil tracer, in which case the
// span already in ctx (usually a non-recording one) is returned.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer != nil {
		return tracer.Start(ctx, name, opts...)
	}
	return ctx, trace.SpanFromContext(ctx)
}

// RecordError attaches err to span and marks it failed. Nil errors are ignored.
// The status text is fixed; provider responses and SQL stay in the event only.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}
