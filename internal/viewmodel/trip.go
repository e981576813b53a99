// Package viewmodel computes the derived, never-persisted values shown
// alongside trips and activities. Every function is pure: callers pass the
// current time and the display location explicitly.
package viewmodel

import (
	"time"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// TripStatus is where a trip sits relative to today.
type TripStatus string

const (
	StatusUpcoming   TripStatus = "upcoming"
	StatusInProgress TripStatus = "in-progress"
	StatusCompleted  TripStatus = "completed"
)

const day = 24 * time.Hour

// DurationDays is the inclusive length of the trip in days: a trip that
// starts and ends on the same date lasts one day.
func DurationDays(start, end time.Time) int {
	return int(domain.DateOnly(end).Sub(domain.DateOnly(start))/day) + 1
}

// today returns the calendar date of now in loc as UTC midnight, the same
// representation trips use for their dates.
func today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return domain.DateOnly(now.In(loc))
}

// calendarDays counts date boundaries between two date-only values.
func calendarDays(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

// Status compares dates, not instants: the whole end date counts as
// in progress.
func Status(t domain.Trip, now time.Time, loc *time.Location) TripStatus {
	d := today(now, loc)
	switch {
	case d.Before(domain.DateOnly(t.StartDate)):
		return StatusUpcoming
	case d.After(domain.DateOnly(t.EndDate)):
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// DaysUntilStart is the number of calendar days from today to the start
// date; zero or negative once the trip has begun.
func DaysUntilStart(t domain.Trip, now time.Time, loc *time.Location) int {
	return calendarDays(today(now, loc), domain.DateOnly(t.StartDate))
}

// Cover color keys a trip can carry.
var CoverColors = []string{"blue", "purple", "sunset", "forest", "night", "coral"}

// DefaultCoverColor is shown when a trip has neither a color nor an image.
const DefaultCoverColor = "blue"

// CoverColor returns the trip's color key, or the default when the stored
// key is empty or unknown. Trips with a cover image still report a color so
// clients have a fallback while the image loads.
func CoverColor(t domain.Trip) string {
	for _, c := range CoverColors {
		if c == t.CoverColor {
			return c
		}
	}
	return DefaultCoverColor
}
