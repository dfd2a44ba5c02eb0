package testutil

import (
	"net/http"
	"time"

	"outing/pkg/requestcontext"
)

// WithTime pins the request clock, the way the request-time middleware would,
// so deadline and timestamp behavior is deterministic when a handler is
// invoked directly.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
