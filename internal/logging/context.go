package logging

import (
	"context"
	"log/slog"

	"pixivdl/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldWorkID is the standardized structured logging key for pixiv work identifiers.
	FieldWorkID = "work_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldSessionID identifies one CLI run across all of its log lines.
	FieldSessionID = "session_id"
	// FieldEventType classifies a record for filtering and alerting.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldDecisionType names the decision a record explains.
	FieldDecisionType = "decision_type"
	// FieldOutcome carries a processing outcome.
	FieldOutcome = "outcome"
)

// ContextFields returns the work id, stage and session id carried by ctx.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var fields []Attr
	for _, f := range []struct {
		key    string
		lookup func(context.Context) (string, bool)
	}{
		{FieldWorkID, services.WorkIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldSessionID, services.SessionIDFromContext},
	} {
		if v, ok := f.lookup(ctx); ok {
			fields = append(fields, slog.String(f.key, v))
		}
	}
	return fields
}

// WithContext returns logger with the context fields of ctx attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
