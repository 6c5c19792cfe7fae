// Tracing instrumentation for the executor.
package executor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/taskloop/internal/queue"
	"github.com/vinayprograms/taskloop/internal/telemetry"
)

// startIterationSpan starts the span covering one popped task.
func (e *Executor) startIterationSpan(ctx context.Context, task queue.Task) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(ctx, "task.iteration")
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.name", task.Name),
		attribute.String("memory.index", e.opts.Index),
	)
	return ctx, span
}

// phase runs fn inside a child span named after the state.
func (e *Executor) phase(ctx context.Context, state State, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, "phase."+string(state))
	err := fn(ctx)
	endSpan(span, err)
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// annotate adds attributes to the iteration span.
func annotate(ctx context.Context, kv ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(kv...)
}
