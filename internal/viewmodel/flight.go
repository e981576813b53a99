package viewmodel

import (
	"time"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// countdownWindow is the span over which the progress bar fills.
const countdownWindow = 30 * 24 * 60

// Countdown is the time left until a departure. Progress is a display
// percentage in [5, 100] and is not linear in the real booking window.
type Countdown struct {
	Days     int     `json:"days"`
	Hours    int     `json:"hours"`
	Minutes  int     `json:"minutes"`
	Progress float64 `json:"progress"`
}

// FlightCountdown returns the countdown to departure, or false once the
// departure instant has passed.
func FlightCountdown(departure, now time.Time) (Countdown, bool) {
	if now.After(departure) {
		return Countdown{}, false
	}
	left := departure.Sub(now)
	c := Countdown{
		Days:    int(left / day),
		Hours:   int(left/time.Hour) % 24,
		Minutes: int(left/time.Minute) % 60,
	}
	minutesLeft := c.Days*24*60 + c.Hours*60 + c.Minutes
	c.Progress = clamp(100-float64(minutesLeft)/countdownWindow*100, 5, 100)
	return c, true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// LocalTime is a flight instant rendered at the airport's own offset.
type LocalTime struct {
	Clock string `json:"clock"`
	Date  string `json:"date"`
}

// FlightLocalTime shifts the instant by the stored offset and reads the
// fields as UTC, so the result never depends on the viewer's zone. An empty
// or malformed offset falls back to fallback.
func FlightLocalTime(instant time.Time, offset string, fallback *time.Location) LocalTime {
	var shifted time.Time
	if d, ok, err := domain.ParseUTCOffset(offset); err == nil && ok {
		shifted = instant.UTC().Add(d)
	} else {
		if fallback == nil {
			fallback = time.UTC
		}
		shifted = instant.In(fallback)
	}
	return LocalTime{
		Clock: shifted.Format("15:04"),
		Date:  shifted.Format("Jan 2"),
	}
}

// FlightDuration is the elapsed time between departure and arrival.
type FlightDuration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Elapsed returns arrival minus departure in whole hours and minutes.
func Elapsed(f domain.FlightInfo) FlightDuration {
	d := f.ArrivalTime.Sub(f.DepartureTime)
	return FlightDuration{
		Hours:   int(d / time.Hour),
		Minutes: int(d%time.Hour) / int(time.Minute),
	}
}

// FlightView bundles every derived value for one flight leg.
type FlightView struct {
	Flight    domain.FlightInfo `json:"-"`
	Departure LocalTime         `json:"departureLocal"`
	Arrival   LocalTime         `json:"arrivalLocal"`
	Duration  FlightDuration    `json:"duration"`
	Departed  bool              `json:"departed"`
	Countdown *Countdown        `json:"countdown,omitempty"`
}

// Flight derives the view of one leg; nil in, nil out.
func Flight(f *domain.FlightInfo, now time.Time, loc *time.Location) *FlightView {
	if f == nil {
		return nil
	}
	v := &FlightView{
		Flight:    *f,
		Departure: FlightLocalTime(f.DepartureTime, f.DepartureTimezone, loc),
		Arrival:   FlightLocalTime(f.ArrivalTime, f.ArrivalTimezone, loc),
		Duration:  Elapsed(*f),
	}
	if c, ok := FlightCountdown(f.DepartureTime, now); ok {
		v.Countdown = &c
	} else {
		v.Departed = true
	}
	return v
}
