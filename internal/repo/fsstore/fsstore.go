// Package fsstore is the Firestore implementation of the repo interfaces.
// Trips live in the top-level "trips" collection with their activities in
// the "activities" subcollection; users and sessions have their own
// top-level collections. Optional fields are omitted from documents rather
// than stored as null, and a cleared field is removed with firestore.Delete.
package fsstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/repo"
)

const (
	tripsCollection      = "trips"
	activitiesCollection = "activities"
	usersCollection      = "users"
	sessionsCollection   = "sessions"
)

// NewStore wires every Firestore implementation over one client.
func NewStore(client *firestore.Client) repo.Store {
	trips := &tripStore{client: client}
	activities := &activityStore{client: client}
	return repo.Store{
		Trips:         trips,
		TripWatch:     trips,
		Activities:    activities,
		ActivityWatch: activities,
		Users:         &userStore{client: client},
		Sessions:      &sessionStore{client: client},
	}
}

// docRef resolves a document id inside col. Firestore rejects empty ids
// and ids containing a slash; neither can name a stored document.
func docRef(col *firestore.CollectionRef, id string) (*firestore.DocumentRef, error) {
	ref := col.Doc(id)
	if ref == nil {
		return nil, domain.ErrNotFound
	}
	return ref, nil
}

// mapErr translates gRPC status codes into domain sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return domain.ErrNotFound
	}
	return err
}

// cancelled reports whether err is the iterator's reaction to ctx being
// cancelled, which ends a watch cleanly.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled)
}

// updates accumulates the field paths of a partial document update.
type updates []firestore.Update

// addUpdate appends path to u unless f is unchanged. A cleared field
// removes the path from the document; conv, when non-nil, converts the
// value to its stored form.
func addUpdate[T any](u *updates, path string, f domain.Field[T], conv func(T) any) {
	if f.IsClear() {
		*u = append(*u, firestore.Update{Path: path, Value: firestore.Delete})
		return
	}
	v, ok := f.Value()
	if !ok {
		return
	}
	var value any = v
	if conv != nil {
		value = conv(v)
	}
	*u = append(*u, firestore.Update{Path: path, Value: value})
}

func wrap(op string, err error) error {
	return fmt.Errorf("fsstore.%s: %w", op, mapErr(err))
}
