package alarming

import (
	"fmt"
	"time"

	"github.com/smukkama/wind-alert-bot/internal/weather"
)

// TimeOfDay is a wall-clock time without a date
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	n, err := fmt.Sscanf(s, "%d:%d:%d", &t.Hour, &t.Minute, &t.Second)
	if err != nil && n != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time format: %s (expected HH:MM or HH:MM:SS)", s)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("time out of range: %s", s)
	}
	return t, nil
}

// TimeOfDayOf returns the wall-clock time of t in t's own location
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Next returns the first instant at or after from whose wall clock equals t.
func (t TimeOfDay) Next(from time.Time) time.Time {
	run := time.Date(from.Year(), from.Month(), from.Day(), t.Hour, t.Minute, t.Second, 0, from.Location())
	if run.Before(from) {
		return run.AddDate(0, 0, 1)
	}
	return run
}

// Window is a daily time-of-day range, inclusive at both ends.
// A window whose start is after its end wraps past midnight.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether t's time of day falls inside the window
func (w Window) Contains(t time.Time) bool {
	x := TimeOfDayOf(t).seconds()
	start, end := w.Start.seconds(), w.End.seconds()

	if start <= end {
		return x >= start && x <= end
	}
	return x >= start || x <= end
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// ShouldAlert decides whether a snapshot taken at now warrants a wind alert
func ShouldAlert(s weather.Snapshot, now time.Time, w Window, thresholdKnots float64) bool {
	if !w.Contains(now) {
		return false
	}
	return meetsThreshold(s.Wind.SpeedKnots(), thresholdKnots)
}

// knotsEpsilon absorbs the rounding of a knots -> m/s -> knots round trip.
const knotsEpsilon = 1e-9

func meetsThreshold(knots, threshold float64) bool {
	return knots >= threshold-knotsEpsilon
}
