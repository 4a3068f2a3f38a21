// Package expiry decides whether time-bounded SCA artefacts have lapsed.
// Every lifecycle check goes through here so boundary handling stays uniform.
package expiry

import "time"

// IsExpired reports whether expiresAt lies strictly before now.
// A nil timestamp never expires, and an instant equal to now is still valid.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return expiresAt.Before(now)
}

// DateExpired reports whether a day-granular validity date has passed.
// validUntil is inclusive: the consent is valid for the whole of that day.
func DateExpired(validUntil, now time.Time) bool {
	if validUntil.IsZero() {
		return false
	}
	return truncateDay(now).After(truncateDay(validUntil))
}

// WindowElapsed reports whether more than window has passed since start.
// A non-positive window never elapses.
func WindowElapsed(start time.Time, window time.Duration, now time.Time) bool {
	if window <= 0 || start.IsZero() {
		return false
	}
	deadline := start.Add(window)
	return IsExpired(&deadline, now)
}

// Deadline returns now+d, or nil when d is not positive.
func Deadline(now time.Time, d time.Duration) *time.Time {
	if d <= 0 {
		return nil
	}
	t := now.Add(d)
	return &t
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
