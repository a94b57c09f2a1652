package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	LoggerKey contextKey = "logger"
	// OperationIDKey identifies one scan, sync or batch invocation.
	OperationIDKey contextKey = "operation_id"
	// StaffNameKey carries the operator recorded on scan events.
	StaffNameKey contextKey = "staff_name"
)

// WithContext stores logger on ctx.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored on ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithOperationID tags ctx with an operation id and stores a logger
// carrying the same id. Both are returned.
func WithOperationID(ctx context.Context, base *zap.Logger, operationID string) (context.Context, *zap.Logger) {
	return tag(ctx, base, OperationIDKey, operationID)
}

// WithStaffName is WithOperationID for the acting staff member.
func WithStaffName(ctx context.Context, base *zap.Logger, staffName string) (context.Context, *zap.Logger) {
	return tag(ctx, base, StaffNameKey, staffName)
}

func tag(ctx context.Context, base *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	l := base.With(zap.String(string(key), value))
	ctx = context.WithValue(ctx, key, value)
	return WithContext(ctx, l), l
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

func GetOperationID(ctx context.Context) string { return stringValue(ctx, OperationIDKey) }

func GetStaffName(ctx context.Context) string { return stringValue(ctx, StaffNameKey) }

// GetTraceID returns the id of the span on ctx, or "" without a valid span.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// Enrich returns base with the trace, operation and staff fields found on
// ctx. Components built with a process-wide logger use it to correlate
// entries with the invocation that triggered them. base is returned as is
// when ctx carries none of them.
func Enrich(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	for _, key := range []contextKey{OperationIDKey, StaffNameKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
