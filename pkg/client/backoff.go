package client

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the wait before a retry.
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Factor per attempt, capped at Max,
// with +/- Jitter applied last.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64 // 0.0 to 1.0
}

// DefaultBackoff is tuned for a local daemon: 50ms, doubling, capped at 2s,
// 20% jitter.
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:   50 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next returns the delay before retry number attempt (0-based).
func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(b.Base) * math.Pow(b.Factor, float64(attempt))
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter > 0 {
		delay += delay * (rand.Float64()*2 - 1) * b.Jitter
	}
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}
