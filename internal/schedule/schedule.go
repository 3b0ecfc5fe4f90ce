// Package schedule derives a live session's display status and duration
// from its calendar date, its "HH:MM - HH:MM" time range and the clock.
package schedule

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eduinstitute/liveclass-server/internal/model"
)

const (
	// RangeSeparator splits the start and end of a stored time range.
	RangeSeparator = " - "

	// DefaultTimeRange applies when a session has no usable time range.
	DefaultTimeRange = "10:00 - 12:00"
)

// ClockTime is a wall-clock hour and minute.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses "HH:MM" (24-hour, exactly two digits each side).
func ParseClock(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("clock %q: missing ':'", s)
	}
	hour, ok := twoDigits(hh)
	if !ok || hour > 23 {
		return ClockTime{}, fmt.Errorf("clock %q: invalid hour", s)
	}
	minute, ok := twoDigits(mm)
	if !ok || minute > 59 {
		return ClockTime{}, fmt.Errorf("clock %q: invalid minute", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// ParseTimeRange splits s on " - " and parses both ends. It does not
// require end to be after start; see ValidateTimeRange.
func ParseTimeRange(s string) (start, end ClockTime, err error) {
	from, to, ok := strings.Cut(s, RangeSeparator)
	if !ok {
		return ClockTime{}, ClockTime{}, fmt.Errorf("time range %q: expected \"HH:MM - HH:MM\"", s)
	}
	if start, err = ParseClock(from); err != nil {
		return ClockTime{}, ClockTime{}, err
	}
	if end, err = ParseClock(to); err != nil {
		return ClockTime{}, ClockTime{}, err
	}
	return start, end, nil
}

// ValidateTimeRange is the write-side check: well formed, and end strictly
// after start on the same day.
func ValidateTimeRange(s string) error {
	start, end, err := ParseTimeRange(s)
	if err != nil {
		return err
	}
	if end.Minutes() <= start.Minutes() {
		return fmt.Errorf("time range %q: end must be after start", s)
	}
	return nil
}

// Window is the absolute start and end of a session occurrence.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFor places timeRange on the calendar day of date in loc. A missing
// or unparsable range falls back to DefaultTimeRange.
func WindowFor(date time.Time, timeRange string, loc *time.Location) Window {
	start, end, err := ParseTimeRange(timeRange)
	if err != nil {
		start, end, _ = ParseTimeRange(DefaultTimeRange)
	}

	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()

	return Window{
		Start: time.Date(y, m, d, start.Hour, start.Minute, 0, 0, loc),
		End:   time.Date(y, m, d, end.Hour, end.Minute, 0, 0, loc),
	}
}

// DurationMinutes is negative for a misconfigured range.
func (w Window) DurationMinutes() int {
	return int(math.Round(w.End.Sub(w.Start).Minutes()))
}

// Status maps now onto the window; both bounds are inclusive.
func (w Window) Status(now time.Time) model.DisplayStatus {
	switch {
	case now.Before(w.Start):
		return model.DisplayStatusUpcoming
	case now.After(w.End):
		return model.DisplayStatusCompleted
	default:
		return model.DisplayStatusLive
	}
}

type Result struct {
	Status   model.DisplayStatus
	Duration int
}

// Derive computes the display status and duration. An inactive stored
// status wins over the clock.
func Derive(stored model.StoredStatus, date time.Time, timeRange string, now time.Time, loc *time.Location) Result {
	w := WindowFor(date, timeRange, loc)

	result := Result{Duration: w.DurationMinutes()}
	if stored == model.StoredStatusInactive {
		result.Status = model.DisplayStatusInactive
	} else {
		result.Status = w.Status(now)
	}
	return result
}
