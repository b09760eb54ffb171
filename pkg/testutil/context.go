package testutil

import (
	"context"
	"net/http"
	"time"

	"proctor/pkg/requestcontext"
)

// WithCaller adds an authenticated subject and its roles to the request
// context. This simulates what the auth middleware would do.
func WithCaller(req *http.Request, subject string, roles ...string) *http.Request {
	ctx := requestcontext.WithSubject(req.Context(), subject)
	ctx = requestcontext.WithRoles(ctx, roles)
	return req.WithContext(ctx)
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request-scoped time.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), key, value))
}
