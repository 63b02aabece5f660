package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyReviewer  contextKey = "reviewer"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithReviewer tags the context with the acting reviewer identity
func WithReviewer(ctx context.Context, reviewer string) context.Context {
	return context.WithValue(ctx, ContextKeyReviewer, reviewer)
}

// ReviewerFromContext extracts the reviewer identity from context
func ReviewerFromContext(ctx context.Context) string {
	if reviewer, ok := ctx.Value(ContextKeyReviewer).(string); ok {
		return reviewer
	}
	return ""
}
