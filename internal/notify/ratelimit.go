package notify

import "golang.org/x/time/rate"

// newLimiter builds the delivery limiter; non-positive settings fall back to 1 rps, burst 5.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
