package ratelimiter

import (
	"math"
	"net/http"
	"strconv"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// WriteHeaders sets the rate limit headers for res on h.
func WriteHeaders(h http.Header, res Result) {
	h.Set(HeaderLimit, strconv.Itoa(res.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(max(0, res.Remaining)))
	h.Set(HeaderReset, strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Allowed() {
		h.Set(HeaderRetryAfter, strconv.Itoa(int(math.Ceil(res.RetryAfter().Seconds()))))
	}
}
