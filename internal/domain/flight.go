package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlightInfo is one flight leg embedded on a trip. DepartureTime and
// ArrivalTime are absolute instants; the offset strings ("+09:00") are used
// only to render local clock time at each airport.
type FlightInfo struct {
	Airline           string    `json:"airline" firestore:"airline"`
	FlightNumber      string    `json:"flightNumber" firestore:"flightNumber"`
	DepartureTime     time.Time `json:"departureTime" firestore:"departureTime"`
	ArrivalTime       time.Time `json:"arrivalTime" firestore:"arrivalTime"`
	DepartureTimezone string    `json:"departureTimezone" firestore:"departureTimezone"`
	ArrivalTimezone   string    `json:"arrivalTimezone" firestore:"arrivalTimezone"`
	DepartureAirport  string    `json:"departureAirport" firestore:"departureAirport"`
	ArrivalAirport    string    `json:"arrivalAirport" firestore:"arrivalAirport"`
}

// Validate checks that both instants are present and both offsets parse.
func (f FlightInfo) Validate() error {
	if f.DepartureTime.IsZero() || f.ArrivalTime.IsZero() {
		return fmt.Errorf("%w: flight departure and arrival times are required", ErrValidation)
	}
	for _, off := range []string{f.DepartureTimezone, f.ArrivalTimezone} {
		if _, _, err := ParseUTCOffset(off); err != nil {
			return err
		}
	}
	return nil
}

// ParseUTCOffset parses an offset string such as "+09:00", "-05:30" or
// "+0545" into a signed duration. An empty string yields ok=false and no
// error, meaning "no offset recorded".
func ParseUTCOffset(s string) (offset time.Duration, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	if s == "Z" || s == "z" {
		return 0, true, nil
	}

	sign := time.Duration(1)
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, false, fmt.Errorf("%w: utc offset %q must start with + or -", ErrValidation, s)
	}
	body := strings.ReplaceAll(s[1:], ":", "")

	var hh, mm string
	switch len(body) {
	case 1, 2:
		hh = body
	case 4:
		hh, mm = body[:2], body[2:]
	default:
		return 0, false, fmt.Errorf("%w: malformed utc offset %q", ErrValidation, s)
	}

	hours, err := strconv.Atoi(hh)
	if err != nil || hours > 14 {
		return 0, false, fmt.Errorf("%w: malformed utc offset %q", ErrValidation, s)
	}
	minutes := 0
	if mm != "" {
		minutes, err = strconv.Atoi(mm)
		if err != nil || minutes > 59 {
			return 0, false, fmt.Errorf("%w: malformed utc offset %q", ErrValidation, s)
		}
	}

	return sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), true, nil
}
