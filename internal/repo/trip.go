package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete implementation.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record with its
	// store-assigned id.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (domain.Trip, error)

	// ListByMember returns every trip whose member set contains userID, in
	// no particular order.
	ListByMember(ctx context.Context, userID string) ([]domain.Trip, error)

	// Update merges the supplied fields and returns the updated record.
	// Returns domain.ErrNotFound if the trip does not exist.
	Update(ctx context.Context, id string, patch domain.TripPatch) (domain.Trip, error)

	// Delete removes the trip only; its activities are left untouched.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, title, destination, start_date, end_date, created_by, members,
		       outbound_flight, return_flight, cover_color, cover_image_url, created_at`

func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (title, destination, start_date, end_date, created_by, members,
		                   outbound_flight, return_flight, cover_color, cover_image_url, created_at)
		VALUES (@title, @destination, @start_date, @end_date, @created_by, @members,
		        @outbound_flight, @return_flight, @cover_color, @cover_image_url, @created_at)
		RETURNING ` + tripColumns

	outbound, err := flightJSON(trip.OutboundFlight)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	ret, err := flightJSON(trip.ReturnFlight)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}

	args := pgx.NamedArgs{
		"title":           trip.Title,
		"destination":     trip.Destination,
		"start_date":      pgtype.Date{Time: domain.DateOnly(trip.StartDate), Valid: true},
		"end_date":        pgtype.Date{Time: domain.DateOnly(trip.EndDate), Valid: true},
		"created_by":      trip.CreatedBy,
		"members":         trip.Members,
		"outbound_flight": outbound, // nil becomes NULL
		"return_flight":   ret,
		"cover_color":     nullText(trip.CoverColor),
		"cover_image_url": nullText(trip.CoverImageURL),
		"created_at":      trip.CreatedAt,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	uid, err := parseID(id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}

	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": uid}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) ListByMember(ctx context.Context, userID string) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE members @> ARRAY[@user_id]::text[]`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByMember: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.ListByMember: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByMember: rows: %w", err)
	}
	return trips, nil
}

func (r *pgTripRepo) Update(ctx context.Context, id string, patch domain.TripPatch) (domain.Trip, error) {
	uid, err := parseID(id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}

	set := newSetClause(pgx.NamedArgs{"id": uid})
	addField(set, "title", patch.Title, nil)
	addField(set, "destination", patch.Destination, nil)
	addField(set, "start_date", patch.StartDate, toDate)
	addField(set, "end_date", patch.EndDate, toDate)
	addField(set, "outbound_flight", patch.OutboundFlight, toFlightJSON)
	addField(set, "return_flight", patch.ReturnFlight, toFlightJSON)
	addField(set, "cover_color", patch.CoverColor, nil)
	addField(set, "cover_image_url", patch.CoverImageURL, nil)

	if set.empty() {
		return r.GetByID(ctx, id)
	}

	q := `
		UPDATE trips
		SET ` + set.String() + `
		WHERE id = @id
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, set.args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = @id`, pgx.NamedArgs{"id": uid})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanTrip maps a single database row into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t                  domain.Trip
		id                 pgtype.UUID
		start, end         pgtype.Date
		outbound, ret      []byte
		coverColor, imgURL pgtype.Text
	)

	err := s.Scan(&id, &t.Title, &t.Destination, &start, &end, &t.CreatedBy, &t.Members,
		&outbound, &ret, &coverColor, &imgURL, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes).String()
	t.StartDate = start.Time
	t.EndDate = end.Time
	t.CoverColor = coverColor.String
	t.CoverImageURL = imgURL.String

	if t.OutboundFlight, err = decodeFlight(outbound); err != nil {
		return domain.Trip{}, fmt.Errorf("decode outbound_flight: %w", err)
	}
	if t.ReturnFlight, err = decodeFlight(ret); err != nil {
		return domain.Trip{}, fmt.Errorf("decode return_flight: %w", err)
	}
	return t, nil
}

func flightJSON(f *domain.FlightInfo) ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

func toFlightJSON(f domain.FlightInfo) any {
	// FlightInfo only holds strings and times, which always marshal.
	b, _ := json.Marshal(f)
	return b
}

func decodeFlight(b []byte) (*domain.FlightInfo, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var f domain.FlightInfo
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func toDate(t time.Time) any {
	return pgtype.Date{Time: domain.DateOnly(t), Valid: true}
}

// nullText stores empty strings as NULL so absent optionals stay absent.
func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
