package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// ActivityRepo defines the persistence operations for Activities.
// Every single-row operation is scoped by tripID.
type ActivityRepo interface {
	// Create inserts a new activity under activity.TripID and returns the
	// persisted record.
	Create(ctx context.Context, activity domain.Activity) (domain.Activity, error)

	// GetByID retrieves one activity of a trip.
	// Returns domain.ErrNotFound if no such activity exists under that trip.
	GetByID(ctx context.Context, tripID, activityID string) (domain.Activity, error)

	// ListByTrip returns the trip's activities ordered by start time ascending.
	ListByTrip(ctx context.Context, tripID string) ([]domain.Activity, error)

	// Update merges the supplied fields and returns the updated record.
	Update(ctx context.Context, tripID, activityID string, patch domain.ActivityPatch) (domain.Activity, error)

	// Delete removes one activity. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, tripID, activityID string) error
}

// pgActivityRepo is the Postgres implementation of ActivityRepo.
type pgActivityRepo struct {
	db db
}

// NewActivityRepo constructs an ActivityRepo backed by the provided db connection.
func NewActivityRepo(db db) ActivityRepo {
	return &pgActivityRepo{db: db}
}

const activityColumns = `id, trip_id, title, type, start_time, end_time, location,
		       departure_location, arrival_location, travel_mode, transit_modes,
		       routing_preference, estimated_duration, notes, checklist`

func (r *pgActivityRepo) Create(ctx context.Context, a domain.Activity) (domain.Activity, error) {
	tripID, err := parseID(a.TripID)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("repo.ActivityRepo.Create: %w", err)
	}

	const q = `
		INSERT INTO activities (trip_id, title, type, start_time, end_time, location,
		                        departure_location, arrival_location, travel_mode, transit_modes,
		                        routing_preference, estimated_duration, notes, checklist)
		VALUES (@trip_id, @title, @type, @start_time, @end_time, @location,
		        @departure_location, @arrival_location, @travel_mode, @transit_modes,
		        @routing_preference, @estimated_duration, @notes, @checklist)
		RETURNING ` + activityColumns

	args := pgx.NamedArgs{
		"trip_id":    tripID,
		"title":      a.Title,
		"type":       string(a.Type),
		"start_time": a.StartTime,
		"end_time":   a.EndTime, // nil becomes NULL
		"notes":      nullText(a.Notes),
		"checklist":  checklistJSON(a.Checklist),
	}
	for k, v := range detailArgs(a.Details) {
		args[k] = v
	}

	result, err := scanActivity(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Activity{}, fmt.Errorf("repo.ActivityRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgActivityRepo) GetByID(ctx context.Context, tripID, activityID string) (domain.Activity, error) {
	tid, aid, err := parseScopedID(tripID, activityID)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("repo.ActivityRepo.GetByID: %w", err)
	}

	q := `SELECT ` + activityColumns + ` FROM activities WHERE id = @id AND trip_id = @trip_id`

	result, err := scanActivity(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": aid, "trip_id": tid}))
	if err != nil {
		return domain.Activity{}, fmt.Errorf("repo.ActivityRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgActivityRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.Activity, error) {
	tid, err := parseID(tripID)
	if err != nil {
		// No trip can have a non-UUID id, so it has no activities.
		return []domain.Activity{}, nil
	}

	q := `SELECT ` + activityColumns + `
		FROM activities
		WHERE trip_id = @trip_id
		ORDER BY start_time ASC, created_at ASC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tid})
	if err != nil {
		return nil, fmt.Errorf("repo.ActivityRepo.ListByTrip: %w", err)
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ActivityRepo.ListByTrip: scan: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ActivityRepo.ListByTrip: rows: %w", err)
	}
	return activities, nil
}

func (r *pgActivityRepo) Update(ctx context.Context, tripID, activityID string, p domain.ActivityPatch) (domain.Activity, error) {
	tid, aid, err := parseScopedID(tripID, activityID)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("repo.ActivityRepo.Update: %w", err)
	}

	p = p.WithVariantCleared()
	set := newSetClause(pgx.NamedArgs{"id": aid, "trip_id": tid})
	addField(set, "title", p.Title, nil)
	addField(set, "type", p.Type, func(t domain.ActivityType) any { return string(t) })
	addField(set, "start_time", p.StartTime, nil)
	addField(set, "end_time", p.EndTime, nil)
	addField(set, "location", p.Location, nil)
	addField(set, "departure_location", p.DepartureLocation, nil)
	addField(set, "arrival_location", p.ArrivalLocation, nil)
	addField(set, "travel_mode", p.TravelMode, func(m domain.TravelMode) any { return string(m) })
	addField(set, "transit_modes", p.TransitModes, func(m []domain.TransitMode) any { return transitStrings(m) })
	addField(set, "routing_preference", p.RoutingPreference, func(rp domain.RoutingPreference) any { return string(rp) })
	addField(set, "estimated_duration", p.EstimatedDuration, nil)
	addField(set, "notes", p.Notes, nil)
	addField(set, "checklist", p.Checklist, func(c domain.Checklist) any { return checklistJSON(c) })

	if set.empty() {
		return r.GetByID(ctx, tripID, activityID)
	}

	q := `
		UPDATE activities
		SET ` + set.String() + `
		WHERE id = @id AND trip_id = @trip_id
		RETURNING ` + activityColumns

	result, err := scanActivity(r.db.QueryRow(ctx, q, set.args))
	if err != nil {
		return domain.Activity{}, fmt.Errorf("repo.ActivityRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgActivityRepo) Delete(ctx context.Context, tripID, activityID string) error {
	tid, aid, err := parseScopedID(tripID, activityID)
	if err != nil {
		return fmt.Errorf("repo.ActivityRepo.Delete: %w", err)
	}

	const q = `DELETE FROM activities WHERE id = @id AND trip_id = @trip_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": aid, "trip_id": tid})
	if err != nil {
		return fmt.Errorf("repo.ActivityRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ActivityRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanActivity maps a single database row into a domain.Activity, building
// the details variant from the type column.
func scanActivity(s scanner) (domain.Activity, error) {
	var (
		a                    domain.Activity
		id, tripID           pgtype.UUID
		typ                  string
		endTime              pgtype.Timestamptz
		location, dep, arr   pgtype.Text
		mode, routing, notes pgtype.Text
		transit              []string
		estimated            pgtype.Int4
		checklist            []byte
	)

	err := s.Scan(&id, &tripID, &a.Title, &typ, &a.StartTime, &endTime, &location,
		&dep, &arr, &mode, &transit, &routing, &estimated, &notes, &checklist)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Activity{}, domain.ErrNotFound
		}
		return domain.Activity{}, err
	}

	a.ID = uuid.UUID(id.Bytes).String()
	a.TripID = uuid.UUID(tripID.Bytes).String()
	a.Type = domain.ActivityType(typ)
	if endTime.Valid {
		et := endTime.Time
		a.EndTime = &et
	}
	a.Notes = notes.String

	if a.Type == domain.ActivityTransport {
		d := domain.TransportDetails{
			DepartureLocation: dep.String,
			ArrivalLocation:   arr.String,
			TravelMode:        domain.TravelMode(mode.String),
			RoutingPreference: domain.RoutingPreference(routing.String),
		}
		for _, m := range transit {
			d.TransitModes = append(d.TransitModes, domain.TransitMode(m))
		}
		if estimated.Valid {
			v := int(estimated.Int32)
			d.EstimatedDuration = &v
		}
		a.Details = d
	} else {
		a.Details = domain.PlaceDetails{Location: location.String}
	}

	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &a.Checklist); err != nil {
			return domain.Activity{}, fmt.Errorf("decode checklist: %w", err)
		}
	}
	return a, nil
}

// detailArgs flattens the variant into its columns; the columns that
// belong to the other variant stay NULL.
func detailArgs(d domain.ActivityDetails) pgx.NamedArgs {
	args := pgx.NamedArgs{
		"location":           nil,
		"departure_location": nil,
		"arrival_location":   nil,
		"travel_mode":        nil,
		"transit_modes":      nil,
		"routing_preference": nil,
		"estimated_duration": nil,
	}
	switch d := d.(type) {
	case domain.PlaceDetails:
		args["location"] = nullText(d.Location)
	case domain.TransportDetails:
		args["departure_location"] = nullText(d.DepartureLocation)
		args["arrival_location"] = nullText(d.ArrivalLocation)
		args["travel_mode"] = nullText(string(d.TravelMode))
		if len(d.TransitModes) > 0 {
			args["transit_modes"] = transitStrings(d.TransitModes)
		}
		args["routing_preference"] = nullText(string(d.RoutingPreference))
		args["estimated_duration"] = d.EstimatedDuration
	}
	return args
}

func transitStrings(modes []domain.TransitMode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

// checklistJSON encodes a checklist; an empty list is stored as NULL.
func checklistJSON(c domain.Checklist) []byte {
	if len(c) == 0 {
		return nil
	}
	b, _ := json.Marshal(c)
	return b
}

func parseScopedID(tripID, activityID string) (uuid.UUID, uuid.UUID, error) {
	tid, err := parseID(tripID)
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, err
	}
	aid, err := parseID(activityID)
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, err
	}
	return tid, aid, nil
}
