package workers

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff is a capped exponential delay with proportional jitter.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64
}

func DefaultBackoff(max time.Duration) Backoff {
	return Backoff{Initial: 100 * time.Millisecond, Max: max, Factor: 2, Jitter: 0.1}
}

// Delay returns the wait before the given attempt, attempts start at 1.
func (b Backoff) Delay(attempt int) time.Duration {
	return b.delay(attempt, rand.Float64())
}

func (b Backoff) delay(attempt int, random float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(b.Initial) * math.Pow(b.Factor, exp)
	// base overflows to +Inf on long outages
	if base >= float64(b.Max) {
		return b.Max
	}
	total := math.Min(float64(b.Max), base+base*b.Jitter*random)
	return time.Duration(total)
}
