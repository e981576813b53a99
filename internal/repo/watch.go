package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// Notification channels written by the triggers in migrations/00002.
const (
	tripChannel     = "trip_changes"
	activityChannel = "activity_changes"
)

// TripWatcher runs live queries over trips. Each Watch call emits the full
// current result immediately and again after every change that can affect
// it. It blocks until ctx is cancelled (returning nil) or the watch breaks
// (returning an error).
type TripWatcher interface {
	WatchByMember(ctx context.Context, userID string, emit func([]domain.Trip)) error
	WatchOne(ctx context.Context, tripID string, emit func(TripSnapshot)) error
}

// ActivityWatcher runs the live query over one trip's activities, ordered
// by start time.
type ActivityWatcher interface {
	WatchByTrip(ctx context.Context, tripID string, emit func([]domain.Activity)) error
}

// pgWatcher implements both watcher interfaces with LISTEN/NOTIFY through a
// shared Notifier. Refresh queries run on db.
type pgWatcher struct {
	db       db
	notifier *Notifier
}

// NewTripWatcher returns a Postgres-backed TripWatcher.
func NewTripWatcher(db db, notifier *Notifier) TripWatcher {
	return &pgWatcher{db: db, notifier: notifier}
}

// NewActivityWatcher returns a Postgres-backed ActivityWatcher.
func NewActivityWatcher(db db, notifier *Notifier) ActivityWatcher {
	return &pgWatcher{db: db, notifier: notifier}
}

type tripChange struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// canonicalID returns the form Postgres prints a UUID in, which is what the
// notification payloads carry. Non-UUID ids are returned unchanged.
func canonicalID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return u.String()
}

func (w *pgWatcher) WatchByMember(ctx context.Context, userID string, emit func([]domain.Trip)) error {
	match := func(payload string) bool {
		var c tripChange
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return true
		}
		return slices.Contains(c.Members, userID)
	}
	refresh := func(ctx context.Context) error {
		trips, err := NewTripRepo(w.db).ListByMember(ctx, userID)
		if err != nil {
			return err
		}
		emit(trips)
		return nil
	}
	if err := w.listen(ctx, tripChannel, match, refresh); err != nil {
		return fmt.Errorf("repo.TripWatcher.WatchByMember: %w", err)
	}
	return nil
}

func (w *pgWatcher) WatchOne(ctx context.Context, tripID string, emit func(TripSnapshot)) error {
	id := canonicalID(tripID)
	match := func(payload string) bool {
		var c tripChange
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return true
		}
		return c.ID == id
	}
	refresh := func(ctx context.Context) error {
		trip, err := NewTripRepo(w.db).GetByID(ctx, tripID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			emit(TripSnapshot{})
		case err != nil:
			return err
		default:
			emit(TripSnapshot{Trip: trip, Exists: true})
		}
		return nil
	}
	if err := w.listen(ctx, tripChannel, match, refresh); err != nil {
		return fmt.Errorf("repo.TripWatcher.WatchOne: %w", err)
	}
	return nil
}

func (w *pgWatcher) WatchByTrip(ctx context.Context, tripID string, emit func([]domain.Activity)) error {
	id := canonicalID(tripID)
	match := func(payload string) bool { return payload == id }
	refresh := func(ctx context.Context) error {
		activities, err := NewActivityRepo(w.db).ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		emit(activities)
		return nil
	}
	if err := w.listen(ctx, activityChannel, match, refresh); err != nil {
		return fmt.Errorf("repo.ActivityWatcher.WatchByTrip: %w", err)
	}
	return nil
}

// listen registers with the notifier, runs refresh once, then again for
// every matching notification. Registration comes before the first refresh
// so no change can slip in between.
func (w *pgWatcher) listen(
	ctx context.Context,
	channel string,
	match func(payload string) bool,
	refresh func(ctx context.Context) error,
) error {
	l, err := w.notifier.subscribe(ctx, channel, match)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer w.notifier.unsubscribe(l)

	for {
		if err := refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.lost:
			return errListenerLost
		case <-l.wake:
			slog.DebugContext(ctx, "live query refresh", "channel", channel)
		}
	}
}
