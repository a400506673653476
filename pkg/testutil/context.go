package testutil

import (
	"net/http"
	"time"

	"k9hope/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped timestamp on an HTTP request.
// Handler tests use this to make lifecycle stamps deterministic, the same way
// the request time middleware does in production.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithRequestID injects a correlation ID, simulating the request ID middleware.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}
