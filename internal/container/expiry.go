package container

import (
	"math"
	"time"
)

// MinutesRemaining returns the whole minutes until expiresAt, rounded up.
// The value is not clamped: an expiry already in the past yields zero or a
// negative count.
func MinutesRemaining(expiresAt, now time.Time) int {
	return int(math.Ceil(expiresAt.Sub(now).Seconds() / 60))
}
