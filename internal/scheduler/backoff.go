package scheduler

import "time"

// Backoff computes the delay before the next payment attempt. The base
// doubles per completed attempt and is capped at the ceiling.
type Backoff struct {
	Base    time.Duration
	Ceiling time.Duration
}

// Delay returns the wait after attemptCount attempts have been made.
// attemptCount 1 waits Base, attemptCount 2 waits 2*Base, and so on.
func (b Backoff) Delay(attemptCount int) time.Duration {
	if attemptCount < 1 {
		attemptCount = 1
	}
	d := b.Base
	for i := 1; i < attemptCount; i++ {
		d *= 2
		if d >= b.Ceiling {
			return b.Ceiling
		}
	}
	if d > b.Ceiling {
		return b.Ceiling
	}
	return d
}
