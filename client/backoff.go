package client

import (
	"math"
	"time"
)

// Backoff produces exponentially growing delays between retries of
// retryable failures. It is not safe for concurrent use.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	attempt int
}

// NextDelay returns the delay before the next attempt and advances the
// schedule: base, then base*2, base*4, capped at Max.
func (b *Backoff) NextDelay() time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}

	d := base << b.attempt
	if d < base {
		// The shift wrapped (or zeroed past 63 attempts); clamp before
		// the cap check so an uncapped schedule still stays positive.
		d = math.MaxInt64
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	b.attempt++
	return d
}

// Reset returns the schedule to its initial delay. Call it after a
// successful request.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns how many delays have been handed out since the last
// reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}
