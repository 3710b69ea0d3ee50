package liveness

import (
	"math/rand"
	"time"
)

// autoSchedule drives automatic reconnection after a dropped connection. The
// first retry is immediate; once the schedule is exhausted the client moves
// on to the manual schedule before giving up on push.
var autoSchedule = []time.Duration{
	0,
	3 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
}

const (
	maxManualAttempts = 10
	manualStep        = 5 * time.Second
	manualCeiling     = 60 * time.Second
	manualJitterSpan  = 3 * time.Second
)

// autoDelay returns the wait before automatic attempt n (zero-based). The
// second return value is false once the schedule is exhausted.
func autoDelay(attempt int) (time.Duration, bool) {
	if attempt < 0 || attempt >= len(autoSchedule) {
		return 0, false
	}
	return autoSchedule[attempt], true
}

// manualDelay returns the wait before manual-schedule attempt n (zero-based).
// The first attempt is immediate; later attempts grow linearly to a ceiling
// with a little jitter so a fleet of clients does not reconnect in lockstep.
// The second return value is false once maxAttempts have been used.
func manualDelay(attempt, maxAttempts int, rng *rand.Rand) (time.Duration, bool) {
	if attempt < 0 || attempt >= maxAttempts {
		return 0, false
	}
	if attempt == 0 {
		return 0, true
	}

	delay := time.Duration(attempt) * manualStep
	if delay > manualCeiling {
		delay = manualCeiling
	}
	return delay + time.Duration(rng.Int63n(int64(manualJitterSpan))), true
}
