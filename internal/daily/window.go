// Package daily implements the daily challenge: the once-per-UTC-day rule,
// per-day progress through the three difficulties, and the decision table
// that runs when a passage is finished.
package daily

import (
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// DayWindow returns the UTC-midnight aligned day [start, end) containing now.
func DayWindow(now time.Time) (start, end time.Time) {
	u := now.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// DateKey returns the UTC calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// TimeUntilReset returns the whole seconds, rounded up, until the next UTC
// midnight. It is never negative.
func TimeUntilReset(now time.Time) int64 {
	_, end := DayWindow(now)
	secs := math.Ceil(end.Sub(now).Seconds())
	return int64(math.Max(0, secs))
}

// AlreadyCompletedError reports a second daily completion on the same day.
type AlreadyCompletedError struct {
	TimeUntilResetSeconds int64
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("daily challenge already completed today (resets in %ds)", e.TimeUntilResetSeconds)
}

// CompletedToday reports whether a daily session created at last falls in
// the same UTC day as now. A zero last means no daily session exists.
func CompletedToday(last, now time.Time) bool {
	if last.IsZero() {
		return false
	}
	start, end := DayWindow(now)
	return !last.Before(start) && last.Before(end)
}

// CheckOnce returns an *AlreadyCompletedError when the latest daily session
// was created today.
func CheckOnce(last, now time.Time) error {
	if CompletedToday(last, now) {
		return &AlreadyCompletedError{TimeUntilResetSeconds: TimeUntilReset(now)}
	}
	return nil
}
