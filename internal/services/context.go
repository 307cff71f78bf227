package services

import "context"

type contextKey string

const (
	workIDKey    contextKey = "work_id"
	stageKey     contextKey = "stage"
	sessionIDKey contextKey = "session_id"
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithWorkID annotates ctx with the pixiv work being processed.
func WithWorkID(ctx context.Context, id string) context.Context {
	return withValue(ctx, workIDKey, id)
}

// WorkIDFromContext extracts the work id if present.
func WorkIDFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, workIDKey) }

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, stageKey) }

// WithSessionID annotates ctx with the id of the current CLI run.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the run id if present.
func SessionIDFromContext(ctx context.Context) (string, bool) { return valueFrom(ctx, sessionIDKey) }
