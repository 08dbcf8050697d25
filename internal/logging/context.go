// internal/logging/context.go
package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}

	if task := TaskFromContext(ctx); task != nil {
		fields = append(fields,
			zap.String("task.name", task.Name),
			zap.String("task.channel", task.Channel),
		)
	}

	return fields
}

type runCtxKey struct{}
type taskCtxKey struct{}
type loggerCtxKey struct{}

// TaskRef identifies the build task a log line belongs to.
type TaskRef struct {
	Name    string
	Channel string
}

// WithRunID adds the CI run identifier to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext extracts the run identifier from context.
func RunIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(runCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithTask adds the task being processed to context.
func WithTask(ctx context.Context, name, channel string) context.Context {
	return context.WithValue(ctx, taskCtxKey{}, &TaskRef{Name: name, Channel: channel})
}

// TaskFromContext extracts the task reference from context.
func TaskFromContext(ctx context.Context) *TaskRef {
	if t, ok := ctx.Value(taskCtxKey{}).(*TaskRef); ok {
		return t
	}
	return nil
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
