package domain

import "time"

// ExportRow is a single row of a trip itinerary export.
// It is a flat, denormalized view: one row per activity, with trip fields
// repeated for every activity. A trip with no activities yields one row
// with zero values for all activity fields.
type ExportRow struct {
	// Trip fields, repeated for every activity on the trip.
	TripID        string
	TripTitle     string
	Destination   string
	TripStartDate string // "2006-01-02"
	TripEndDate   string // "2006-01-02"

	// Activity fields, zero values when the trip has no activities.
	Day           string // "2006-01-02" in the display zone
	ActivityTitle string
	ActivityType  ActivityType
	StartTime     *time.Time
	EndTime       *time.Time
	// Where is the place location, or "A → B" for transport.
	Where     string
	Notes     string
	Checklist string // "2/3", empty when there is no checklist
}
