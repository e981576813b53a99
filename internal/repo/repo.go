// Package repo contains the persistence layer of the travel planner.
// Each resource has its own file with an interface and a Postgres
// implementation; the Firestore implementation lives in repo/fsstore.
// No business logic lives here, only queries and type mapping.
package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Store bundles every persistence interface the services need. Both the
// Postgres and the Firestore backends produce one.
type Store struct {
	Trips         TripRepo
	TripWatch     TripWatcher
	Activities    ActivityRepo
	ActivityWatch ActivityWatcher
	Users         UserRepo
	Sessions      SessionRepo
}

// NewPostgresStore wires the Postgres implementations over one pool. Live
// queries share notifier, whose Run the caller starts.
func NewPostgresStore(pool *pgxpool.Pool, notifier *Notifier) Store {
	return Store{
		Trips:         NewTripRepo(pool),
		TripWatch:     NewTripWatcher(pool, notifier),
		Activities:    NewActivityRepo(pool),
		ActivityWatch: NewActivityWatcher(pool, notifier),
		Users:         NewUserRepo(pool),
		Sessions:      NewSessionRepo(pool),
	}
}

// TripSnapshot is one emission of a single-trip watch. Exists is false once
// the trip has been deleted (or never existed).
type TripSnapshot struct {
	Trip   domain.Trip
	Exists bool
}

// parseID converts a store id into a UUID. Ids that are not UUIDs cannot
// exist in Postgres, so they are reported as not found.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, domain.ErrNotFound
	}
	return u, nil
}

// setClause accumulates the SET list of a partial UPDATE.
type setClause struct {
	cols []string
	args pgx.NamedArgs
}

func newSetClause(args pgx.NamedArgs) *setClause {
	return &setClause{args: args}
}

// add appends "col = @col" when v is set, or "col = NULL" when cleared.
func addField[T any](s *setClause, col string, f domain.Field[T], conv func(T) any) {
	switch {
	case f.IsClear():
		s.cols = append(s.cols, col+" = NULL")
	case f.IsSet():
		v, _ := f.Value()
		s.cols = append(s.cols, fmt.Sprintf("%s = @%s", col, col))
		if conv != nil {
			s.args[col] = conv(v)
		} else {
			s.args[col] = v
		}
	}
}

func (s *setClause) empty() bool { return len(s.cols) == 0 }

func (s *setClause) String() string {
	return strings.Join(append(s.cols, "updated_at = now()"), ",\n\t\t    ")
}
