package httpx

import (
	"net/http"
	"time"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, m ...Middleware) http.Handler {
	// Apply in reverse so Chain(h, a, b) becomes a(b(h)).
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// defaultBodyLimit caps request bodies when no explicit limit is given.
// Booking payloads are small; anything near a megabyte is not a booking.
const defaultBodyLimit int64 = 1 << 20

func WithBodyLimit(limitBytes int64) Middleware {
	if limitBytes <= 0 {
		limitBytes = defaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// WithTimeout bounds handler time. The timeout body mirrors the API's error
// envelope so clients parse it like any other failure.
func WithTimeout(d time.Duration) Middleware {
	const body = `{"success":false,"code":"TIMEOUT","message":"request timed out"}`
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, body)
	}
}
