package domain

import (
	"fmt"
	"time"
)

// ActivityType is the closed set of activity kinds.
type ActivityType string

const (
	ActivitySightseeing ActivityType = "sightseeing"
	ActivityFood        ActivityType = "food"
	ActivityShopping    ActivityType = "shopping"
	ActivityTransport   ActivityType = "transport"
	ActivityLodging     ActivityType = "lodging"
	ActivityOther       ActivityType = "other"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivitySightseeing, ActivityFood, ActivityShopping,
		ActivityTransport, ActivityLodging, ActivityOther:
		return true
	}
	return false
}

// TravelMode is how a transport activity gets from A to B.
type TravelMode string

const (
	TravelTransit   TravelMode = "transit"
	TravelDriving   TravelMode = "driving"
	TravelWalking   TravelMode = "walking"
	TravelBicycling TravelMode = "bicycling"
)

// Valid reports whether m is a known travel mode.
func (m TravelMode) Valid() bool {
	switch m {
	case TravelTransit, TravelDriving, TravelWalking, TravelBicycling:
		return true
	}
	return false
}

// TransitMode is a preferred transit sub-mode.
type TransitMode string

const (
	TransitSubway TransitMode = "subway"
	TransitBus    TransitMode = "bus"
	TransitTrain  TransitMode = "train"
	TransitTram   TransitMode = "tram"
	TransitRail   TransitMode = "rail"
)

// Valid reports whether m is a known transit sub-mode.
func (m TransitMode) Valid() bool {
	switch m {
	case TransitSubway, TransitBus, TransitTrain, TransitTram, TransitRail:
		return true
	}
	return false
}

// RoutingPreference is the transit routing preference.
type RoutingPreference string

const (
	RoutingLessWalking    RoutingPreference = "less_walking"
	RoutingFewerTransfers RoutingPreference = "fewer_transfers"
)

// Valid reports whether p is a known routing preference.
func (p RoutingPreference) Valid() bool {
	return p == RoutingLessWalking || p == RoutingFewerTransfers
}

// ActivityDetails is the variant part of an activity. It is either
// PlaceDetails or TransportDetails; no other implementations exist.
type ActivityDetails interface {
	isActivityDetails()
}

// PlaceDetails is carried by every non-transport activity.
type PlaceDetails struct {
	Location string
}

// TransportDetails is carried by transport activities.
type TransportDetails struct {
	DepartureLocation string
	ArrivalLocation   string
	// TravelMode is empty when the user has not picked one.
	TravelMode        TravelMode
	TransitModes      []TransitMode
	RoutingPreference RoutingPreference
	// EstimatedDuration is in minutes; nil when not estimated.
	EstimatedDuration *int
}

func (PlaceDetails) isActivityDetails()     {}
func (TransportDetails) isActivityDetails() {}

// Validate checks the enum members of a transport variant.
func (d TransportDetails) Validate() error {
	if d.TravelMode != "" && !d.TravelMode.Valid() {
		return fmt.Errorf("%w: unknown travel mode %q", ErrValidation, d.TravelMode)
	}
	for _, m := range d.TransitModes {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown transit mode %q", ErrValidation, m)
		}
	}
	if d.RoutingPreference != "" && !d.RoutingPreference.Valid() {
		return fmt.Errorf("%w: unknown routing preference %q", ErrValidation, d.RoutingPreference)
	}
	if d.EstimatedDuration != nil && *d.EstimatedDuration < 0 {
		return fmt.Errorf("%w: estimated duration must not be negative", ErrValidation)
	}
	return nil
}

// Activity is a scheduled item on a trip.
type Activity struct {
	ID     string
	TripID string
	Title  string
	Type   ActivityType

	StartTime time.Time
	EndTime   *time.Time

	Details ActivityDetails

	Notes     string
	Checklist Checklist
}

// Place returns the place variant, or false for transport activities.
func (a Activity) Place() (PlaceDetails, bool) {
	d, ok := a.Details.(PlaceDetails)
	return d, ok
}

// Transport returns the transport variant, or false for other activities.
func (a Activity) Transport() (TransportDetails, bool) {
	d, ok := a.Details.(TransportDetails)
	return d, ok
}

// Validate performs structural checks: known type, a start instant and a
// details variant that agrees with the type.
func (a Activity) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown activity type %q", ErrValidation, a.Type)
	}
	if a.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrValidation)
	}
	switch d := a.Details.(type) {
	case nil:
	case TransportDetails:
		if a.Type != ActivityTransport {
			return fmt.Errorf("%w: transport details on a %s activity", ErrValidation, a.Type)
		}
		if err := d.Validate(); err != nil {
			return err
		}
	case PlaceDetails:
		if a.Type == ActivityTransport {
			return fmt.Errorf("%w: transport activity requires departure and arrival", ErrValidation)
		}
	}
	return nil
}

// Normalize fills in an empty variant matching the type.
func (a Activity) Normalize() Activity {
	if a.Details == nil {
		if a.Type == ActivityTransport {
			a.Details = TransportDetails{}
		} else {
			a.Details = PlaceDetails{}
		}
	}
	return a
}

// ActivityPatch is a partial update of an activity. Variant fields are
// flat here because a patch may touch one of them at a time; Apply rebuilds
// the variant from the resulting type.
type ActivityPatch struct {
	Title     Field[string]
	Type      Field[ActivityType]
	StartTime Field[time.Time]
	EndTime   Field[time.Time]

	Location          Field[string]
	DepartureLocation Field[string]
	ArrivalLocation   Field[string]
	TravelMode        Field[TravelMode]
	TransitModes      Field[[]TransitMode]
	RoutingPreference Field[RoutingPreference]
	EstimatedDuration Field[int]

	Notes     Field[string]
	Checklist Field[Checklist]
}

// Validate rejects clears of required fields and unknown enum values.
func (p ActivityPatch) Validate() error {
	if p.Title.IsClear() || p.Type.IsClear() || p.StartTime.IsClear() {
		return fmt.Errorf("%w: title, type and startTime cannot be cleared", ErrValidation)
	}
	if v, ok := p.Type.Value(); ok && !v.Valid() {
		return fmt.Errorf("%w: unknown activity type %q", ErrValidation, v)
	}
	d := TransportDetails{}
	if v, ok := p.TravelMode.Value(); ok {
		d.TravelMode = v
	}
	if v, ok := p.TransitModes.Value(); ok {
		d.TransitModes = v
	}
	if v, ok := p.RoutingPreference.Value(); ok {
		d.RoutingPreference = v
	}
	if v, ok := p.EstimatedDuration.Value(); ok {
		d.EstimatedDuration = &v
	}
	return d.Validate()
}

// WithVariantCleared returns p with every field of the variant its new Type
// does not use set to Clear, so a type change leaves no stale details
// behind. A patch that does not set Type is returned unchanged.
func (p ActivityPatch) WithVariantCleared() ActivityPatch {
	t, ok := p.Type.Value()
	if !ok {
		return p
	}
	if t == ActivityTransport {
		p.Location = Clear[string]()
		return p
	}
	p.DepartureLocation = Clear[string]()
	p.ArrivalLocation = Clear[string]()
	p.TravelMode = Clear[TravelMode]()
	p.TransitModes = Clear[[]TransitMode]()
	p.RoutingPreference = Clear[RoutingPreference]()
	p.EstimatedDuration = Clear[int]()
	return p
}

// Apply returns a with the patch merged in.
func (p ActivityPatch) Apply(a Activity) Activity {
	if v, ok := p.Title.Value(); ok {
		a.Title = v
	}
	if v, ok := p.Type.Value(); ok {
		a.Type = v
	}
	if v, ok := p.StartTime.Value(); ok {
		a.StartTime = v
	}
	a.EndTime = p.EndTime.Apply(a.EndTime)
	if p.Notes.IsClear() {
		a.Notes = ""
	} else if v, ok := p.Notes.Value(); ok {
		a.Notes = v
	}
	if p.Checklist.IsClear() {
		a.Checklist = nil
	} else if v, ok := p.Checklist.Value(); ok {
		a.Checklist = v
	}

	place, _ := a.Place()
	transport, _ := a.Transport()
	applyString(p.Location, &place.Location)
	applyString(p.DepartureLocation, &transport.DepartureLocation)
	applyString(p.ArrivalLocation, &transport.ArrivalLocation)
	if p.TravelMode.IsClear() {
		transport.TravelMode = ""
	} else if v, ok := p.TravelMode.Value(); ok {
		transport.TravelMode = v
	}
	if p.TransitModes.IsClear() {
		transport.TransitModes = nil
	} else if v, ok := p.TransitModes.Value(); ok {
		transport.TransitModes = v
	}
	if p.RoutingPreference.IsClear() {
		transport.RoutingPreference = ""
	} else if v, ok := p.RoutingPreference.Value(); ok {
		transport.RoutingPreference = v
	}
	transport.EstimatedDuration = p.EstimatedDuration.Apply(transport.EstimatedDuration)

	if a.Type == ActivityTransport {
		a.Details = transport
	} else {
		a.Details = place
	}
	return a
}

func applyString(f Field[string], dst *string) {
	if f.IsClear() {
		*dst = ""
	} else if v, ok := f.Value(); ok {
		*dst = v
	}
}
