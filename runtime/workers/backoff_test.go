package workers

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff(30 * time.Second)
	tests := []struct {
		name     string
		attempt  int
		random   float64
		expected time.Duration
	}{
		{"first attempt", 1, 0, 100 * time.Millisecond},
		{"zero attempt behaves as first", 0, 0, 100 * time.Millisecond},
		{"doubles", 3, 0, 400 * time.Millisecond},
		{"full jitter adds ten percent", 2, 1, 220 * time.Millisecond},
		{"capped", 20, 0.5, 30 * time.Second},
		{"capped after overflow without jitter", 5000, 0, 30 * time.Second},
		{"capped after overflow with jitter", 5000, 1, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, b.delay(tt.attempt, tt.random))
		})
	}
}

func TestBackoff_Delay_Stays_Within_Bounds(t *testing.T) {
	req := require.New(t)
	b := DefaultBackoff(time.Second)
	for attempt := 1; attempt < 15; attempt++ {
		d := b.Delay(attempt)
		req.GreaterOrEqual(d, 100*time.Millisecond)
		req.LessOrEqual(d, time.Second)
	}
}
