package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/live"
	"github.com/cychmps426211/travelplan/internal/repo"
)

// TripService implements the trip operations: membership-scoped reads and
// live queries plus create, partial update and delete.
type TripService struct {
	trips  repo.TripRepo
	watch  repo.TripWatcher
	logger *slog.Logger
	now    func() time.Time
}

// NewTripService constructs a TripService over the given repo and watcher.
func NewTripService(trips repo.TripRepo, watch repo.TripWatcher, logger *slog.Logger) *TripService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TripService{trips: trips, watch: watch, logger: logger, now: time.Now}
}

// SortByStart orders trips by start date, oldest first. Ties keep the
// store order.
func SortByStart(trips []domain.Trip) []domain.Trip {
	out := slices.Clone(trips)
	slices.SortStableFunc(out, func(a, b domain.Trip) int {
		return a.StartDate.Compare(b.StartDate)
	})
	return out
}

// Subscribe starts a live query over the trips userID is a member of. fn
// receives the full set, sorted by start date, on every change.
func (s *TripService) Subscribe(ctx context.Context, userID string, fn func([]domain.Trip), opts ...live.Option) *live.Subscription {
	src := func(ctx context.Context, emit func([]domain.Trip)) error {
		return s.watch.WatchByMember(ctx, userID, func(trips []domain.Trip) {
			emit(SortByStart(trips))
		})
	}
	opts = append([]live.Option{live.WithLogger(s.logger)}, opts...)
	return live.Start(ctx, "trips:"+userID, src, fn, opts...)
}

// SubscribeTrip starts a live query over a single trip document. A deleted
// trip emits a snapshot with Exists false.
func (s *TripService) SubscribeTrip(ctx context.Context, tripID string, fn func(repo.TripSnapshot), opts ...live.Option) *live.Subscription {
	src := func(ctx context.Context, emit func(repo.TripSnapshot)) error {
		return s.watch.WatchOne(ctx, tripID, emit)
	}
	opts = append([]live.Option{live.WithLogger(s.logger)}, opts...)
	return live.Start(ctx, "trip:"+tripID, src, fn, opts...)
}

// List returns the trips userID is a member of, sorted by start date.
// Always returns a non-nil slice.
func (s *TripService) List(ctx context.Context, userID string) ([]domain.Trip, error) {
	trips, err := s.trips.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		return []domain.Trip{}, nil
	}
	return SortByStart(trips), nil
}

// GetByID returns a single trip.
func (s *TripService) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return t, nil
}

// Create stores a new trip owned by userID. The creator is the only member.
func (s *TripService) Create(ctx context.Context, userID string, n domain.NewTrip) (_ domain.Trip, err error) {
	ctx, span := tracer.Start(ctx, "TripService.Create")
	defer func() { endSpan(span, err) }()

	if err := n.Validate(); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	if err := validCoverColor(n.CoverColor); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	trip := domain.Trip{
		Title:          n.Title,
		Destination:    n.Destination,
		StartDate:      domain.DateOnly(n.StartDate),
		EndDate:        domain.DateOnly(n.EndDate),
		CreatedBy:      userID,
		Members:        []string{userID},
		CreatedAt:      s.now().UTC(),
		OutboundFlight: n.OutboundFlight,
		ReturnFlight:   n.ReturnFlight,
		CoverColor:     n.CoverColor,
		CoverImageURL:  n.CoverImageURL,
	}
	created, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, writeErr("service.TripService.Create", err)
	}
	span.SetAttributes(attribute.String("trip.id", created.ID))
	return created, nil
}

// Update merges patch into the trip. An empty patch is a read.
func (s *TripService) Update(ctx context.Context, id string, patch domain.TripPatch) (_ domain.Trip, err error) {
	ctx, span := tracer.Start(ctx, "TripService.Update")
	span.SetAttributes(attribute.String("trip.id", id))
	defer func() { endSpan(span, err) }()

	if err := patch.Validate(); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	if v, ok := patch.CoverColor.Value(); ok {
		if err := validCoverColor(v); err != nil {
			return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
		}
	}
	if patch.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	updated, err := s.trips.Update(ctx, id, patch)
	if err != nil {
		return domain.Trip{}, writeErr("service.TripService.Update", err)
	}
	return updated, nil
}

// Delete removes the trip document. Its activities are left in place.
func (s *TripService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "TripService.Delete")
	span.SetAttributes(attribute.String("trip.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.trips.Delete(ctx, id); err != nil {
		return writeErr("service.TripService.Delete", err)
	}
	return nil
}
