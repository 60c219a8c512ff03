package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	windowIndexKey contextKey = "window_index"
	stageKey       contextKey = "stage"
	requestIDKey   contextKey = "request_id"
)

// WithWindowIndex annotates context with the content window index.
func WithWindowIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, windowIndexKey, index)
}

// WindowIndexFromContext extracts the content window index if present.
func WindowIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(windowIndexKey)
	if v == nil {
		return 0, false
	}
	if idx, ok := v.(int); ok {
		return idx, true
	}
	return 0, false
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
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// NewRequestID mints a correlation identifier for one pipeline run.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
