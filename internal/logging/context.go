package logging

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// CreateContextWithRequestID attaches a request ID to the context so it can
// travel with the work and show up on every log line for that request.
func CreateContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestIDFromContext returns the request ID carried by the context, or
// the empty string when none was attached.
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithContext returns an entry carrying the request ID when the context
// holds one.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.log.WithContext(ctx)

	if requestID := GetRequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}

	return entry
}
