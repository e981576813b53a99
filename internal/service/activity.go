package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/live"
	"github.com/cychmps426211/travelplan/internal/repo"
)

// ActivityService implements the activity operations of one trip, including
// the read-modify-write checklist edits.
type ActivityService struct {
	activities repo.ActivityRepo
	watch      repo.ActivityWatcher
	logger     *slog.Logger
	newID      func() string
}

// NewActivityService constructs an ActivityService.
func NewActivityService(activities repo.ActivityRepo, watch repo.ActivityWatcher, logger *slog.Logger) *ActivityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityService{
		activities: activities,
		watch:      watch,
		logger:     logger,
		newID:      func() string { return xid.New().String() },
	}
}

// Subscribe starts a live query over a trip's activities. The store orders
// them by start time; fn receives the full set on every change.
func (s *ActivityService) Subscribe(ctx context.Context, tripID string, fn func([]domain.Activity), opts ...live.Option) *live.Subscription {
	src := func(ctx context.Context, emit func([]domain.Activity)) error {
		return s.watch.WatchByTrip(ctx, tripID, emit)
	}
	opts = append([]live.Option{live.WithLogger(s.logger)}, opts...)
	return live.Start(ctx, "activities:"+tripID, src, fn, opts...)
}

// List returns a trip's activities ordered by start time. Always returns a
// non-nil slice.
func (s *ActivityService) List(ctx context.Context, tripID string) ([]domain.Activity, error) {
	as, err := s.activities.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.ActivityService.List: %w", err)
	}
	if as == nil {
		return []domain.Activity{}, nil
	}
	return as, nil
}

// GetByID returns one activity scoped to its trip.
func (s *ActivityService) GetByID(ctx context.Context, tripID, activityID string) (domain.Activity, error) {
	a, err := s.activities.GetByID(ctx, tripID, activityID)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("service.ActivityService.GetByID: %w", err)
	}
	return a, nil
}

// Add stores a new activity under tripID. The parent trip is not checked:
// activities may exist without a loaded or existing trip.
func (s *ActivityService) Add(ctx context.Context, tripID string, a domain.Activity) (_ domain.Activity, err error) {
	ctx, span := tracer.Start(ctx, "ActivityService.Add")
	span.SetAttributes(attribute.String("trip.id", tripID))
	defer func() { endSpan(span, err) }()

	a.ID = ""
	a.TripID = tripID
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return domain.Activity{}, fmt.Errorf("service.ActivityService.Add: %w", err)
	}

	created, err := s.activities.Create(ctx, a)
	if err != nil {
		return domain.Activity{}, writeErr("service.ActivityService.Add", err)
	}
	return created, nil
}

// Update merges patch into the activity.
func (s *ActivityService) Update(ctx context.Context, tripID, activityID string, patch domain.ActivityPatch) (_ domain.Activity, err error) {
	ctx, span := tracer.Start(ctx, "ActivityService.Update")
	span.SetAttributes(attribute.String("trip.id", tripID), attribute.String("activity.id", activityID))
	defer func() { endSpan(span, err) }()

	if err := patch.Validate(); err != nil {
		return domain.Activity{}, fmt.Errorf("service.ActivityService.Update: %w", err)
	}

	updated, err := s.activities.Update(ctx, tripID, activityID, patch)
	if err != nil {
		return domain.Activity{}, writeErr("service.ActivityService.Update", err)
	}
	return updated, nil
}

// Delete removes one activity.
func (s *ActivityService) Delete(ctx context.Context, tripID, activityID string) (err error) {
	ctx, span := tracer.Start(ctx, "ActivityService.Delete")
	span.SetAttributes(attribute.String("trip.id", tripID), attribute.String("activity.id", activityID))
	defer func() { endSpan(span, err) }()

	if err := s.activities.Delete(ctx, tripID, activityID); err != nil {
		return writeErr("service.ActivityService.Delete", err)
	}
	return nil
}

// ---- Checklist -------------------------------------------------------------
//
// Each edit reads the current list, recomputes it and writes the whole list
// back. Two concurrent edits race and the later write wins.

// AddChecklistItem appends a new incomplete item with a fresh id.
func (s *ActivityService) AddChecklistItem(ctx context.Context, tripID, activityID, text string) (domain.Activity, error) {
	id := s.newID()
	return s.editChecklist(ctx, "AddChecklistItem", tripID, activityID, func(c domain.Checklist) (domain.Checklist, error) {
		return c.Add(id, text)
	})
}

// UpdateChecklistItem changes one item in a single write: text, when
// non-nil, replaces its text, then toggle flips its completed flag.
func (s *ActivityService) UpdateChecklistItem(ctx context.Context, tripID, activityID, itemID string, text *string, toggle bool) (domain.Activity, error) {
	return s.editChecklist(ctx, "UpdateChecklistItem", tripID, activityID, func(c domain.Checklist) (domain.Checklist, error) {
		var err error
		if text != nil {
			if c, err = c.Edit(itemID, *text); err != nil {
				return nil, err
			}
		}
		if toggle {
			if c, err = c.Toggle(itemID); err != nil {
				return nil, err
			}
		}
		return c, nil
	})
}

// RemoveChecklistItem drops one item.
func (s *ActivityService) RemoveChecklistItem(ctx context.Context, tripID, activityID, itemID string) (domain.Activity, error) {
	return s.editChecklist(ctx, "RemoveChecklistItem", tripID, activityID, func(c domain.Checklist) (domain.Checklist, error) {
		return c.Remove(itemID)
	})
}

func (s *ActivityService) editChecklist(
	ctx context.Context,
	op, tripID, activityID string,
	fn func(domain.Checklist) (domain.Checklist, error),
) (_ domain.Activity, err error) {
	ctx, span := tracer.Start(ctx, "ActivityService."+op)
	span.SetAttributes(attribute.String("trip.id", tripID), attribute.String("activity.id", activityID))
	defer func() { endSpan(span, err) }()

	current, err := s.activities.GetByID(ctx, tripID, activityID)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("service.ActivityService.%s: %w", op, err)
	}
	next, err := fn(current.Checklist)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("service.ActivityService.%s: %w", op, err)
	}

	updated, err := s.activities.Update(ctx, tripID, activityID, domain.ActivityPatch{
		Checklist: domain.Set(next),
	})
	if err != nil {
		return domain.Activity{}, writeErr("service.ActivityService."+op, err)
	}
	return updated, nil
}
