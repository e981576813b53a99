// Package domain contains the core data types for the travel planner.
// It is imported by every other internal package (repo, service, handler,
// viewmodel) and holds no I/O.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Trip is the top-level aggregate; activities belong to a trip but are not
// deleted with it.
type Trip struct {
	ID          string
	Title       string
	Destination string
	// StartDate and EndDate are date-only values stored as UTC midnight.
	// StartDate <= EndDate is not enforced.
	StartDate time.Time
	EndDate   time.Time
	CreatedBy string
	// Members always contains CreatedBy.
	Members   []string
	CreatedAt time.Time

	OutboundFlight *FlightInfo
	ReturnFlight   *FlightInfo

	CoverColor    string
	CoverImageURL string
}

// HasMember reports whether userID is in the trip's member set.
func (t Trip) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewTrip is the caller-supplied part of a trip. The store adapter stamps
// creator, members and creation time.
type NewTrip struct {
	Title          string
	Destination    string
	StartDate      time.Time
	EndDate        time.Time
	OutboundFlight *FlightInfo
	ReturnFlight   *FlightInfo
	CoverColor     string
	CoverImageURL  string
}

// Validate performs the structural checks that apply to a new trip.
func (n NewTrip) Validate() error {
	if n.StartDate.IsZero() || n.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	for _, f := range []*FlightInfo{n.OutboundFlight, n.ReturnFlight} {
		if f == nil {
			continue
		}
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TripPatch is a partial update of a trip. Title, destination and dates are
// required on the trip and cannot be cleared.
type TripPatch struct {
	Title          Field[string]
	Destination    Field[string]
	StartDate      Field[time.Time]
	EndDate        Field[time.Time]
	OutboundFlight Field[FlightInfo]
	ReturnFlight   Field[FlightInfo]
	CoverColor     Field[string]
	CoverImageURL  Field[string]
}

// IsEmpty reports whether the patch changes nothing.
func (p TripPatch) IsEmpty() bool {
	return p.Title.IsUnchanged() && p.Destination.IsUnchanged() &&
		p.StartDate.IsUnchanged() && p.EndDate.IsUnchanged() &&
		p.OutboundFlight.IsUnchanged() && p.ReturnFlight.IsUnchanged() &&
		p.CoverColor.IsUnchanged() && p.CoverImageURL.IsUnchanged()
}

// Validate rejects clears of required fields and malformed flight legs.
func (p TripPatch) Validate() error {
	var cleared []string
	if p.Title.IsClear() {
		cleared = append(cleared, "title")
	}
	if p.Destination.IsClear() {
		cleared = append(cleared, "destination")
	}
	if p.StartDate.IsClear() {
		cleared = append(cleared, "startDate")
	}
	if p.EndDate.IsClear() {
		cleared = append(cleared, "endDate")
	}
	if len(cleared) > 0 {
		return fmt.Errorf("%w: cannot clear %s", ErrValidation, strings.Join(cleared, ", "))
	}
	for _, f := range []Field[FlightInfo]{p.OutboundFlight, p.ReturnFlight} {
		if v, ok := f.Value(); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply returns t with the patch merged in. Stores use it where they cannot
// express the merge natively.
func (p TripPatch) Apply(t Trip) Trip {
	if v, ok := p.Title.Value(); ok {
		t.Title = v
	}
	if v, ok := p.Destination.Value(); ok {
		t.Destination = v
	}
	if v, ok := p.StartDate.Value(); ok {
		t.StartDate = DateOnly(v)
	}
	if v, ok := p.EndDate.Value(); ok {
		t.EndDate = DateOnly(v)
	}
	t.OutboundFlight = p.OutboundFlight.Apply(t.OutboundFlight)
	t.ReturnFlight = p.ReturnFlight.Apply(t.ReturnFlight)
	if p.CoverColor.IsClear() {
		t.CoverColor = ""
	} else if v, ok := p.CoverColor.Value(); ok {
		t.CoverColor = v
	}
	if p.CoverImageURL.IsClear() {
		t.CoverImageURL = ""
	} else if v, ok := p.CoverImageURL.Value(); ok {
		t.CoverImageURL = v
	}
	return t
}
