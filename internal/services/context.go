package services

import "context"

type contextKey string

const (
	titleIDKey contextKey = "title_id"
	stageKey   contextKey = "stage"
	runIDKey   contextKey = "run_id"
)

// WithTitleID annotates context with the catalog title identifier.
func WithTitleID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, titleIDKey, id)
}

// TitleIDFromContext extracts the title identifier if present.
func TitleIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(titleIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
