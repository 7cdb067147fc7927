package tasks

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks between remote write calls. [*rate.Limiter] satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a limiter that spaces successive Wait returns at least delay apart.
//
// The initial token is consumed so the first Wait also blocks for delay. A non-positive delay never blocks.
func NewPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)
	limiter.Allow()
	return limiter
}
