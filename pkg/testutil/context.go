package testutil

import (
	"net/http"
	"time"

	"didreg/pkg/requestcontext"
)

// WithFixedTime pins the request clock, simulating what the request-time
// middleware does but with a time the test controls. Expiry tests use this to
// age jobs without sleeping.
func WithFixedTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
