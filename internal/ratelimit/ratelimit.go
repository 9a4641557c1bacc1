// Package ratelimit caps fifo command ingestion per device, protecting
// the single-threaded dispatcher from a runaway client flooding the
// command plane. A rejected command still gets a response line; it is
// never silently dropped.
package ratelimit

import (
	"golang.org/x/time/rate"
)

// Limiter is a per-device token bucket.
type Limiter struct {
	l *rate.Limiter
}

// New returns a Limiter allowing perSec commands per second with the
// given burst. Non-positive values fall back to 10/s with a burst of 20.
func New(perSec float64, burst int) *Limiter {
	if perSec <= 0 {
		perSec = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &Limiter{l: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// Allow reports whether one more command may be dispatched now.
func (lm *Limiter) Allow() bool {
	return lm.l.Allow()
}
