package radio

import "time"

// nextFire computes the next absolute dispatch time from the previous
// scheduled point, not from now. That keeps the cadence anchored: a slow
// cycle delays at most itself, never the whole schedule. If processing fell
// more than one interval behind, missed slots are dropped rather than
// replayed in a burst.
func nextFire(last time.Time, interval time.Duration, now time.Time) time.Time {
	if interval <= 0 {
		interval = time.Minute
	}
	if last.IsZero() {
		return now.Add(interval)
	}
	next := last.Add(interval)
	if !next.After(now) {
		behind := now.Sub(last)
		steps := behind/interval + 1
		next = last.Add(steps * interval)
	}
	return next
}
