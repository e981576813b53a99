package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// SessionRepo stores server-side session records so a session can be
// terminated before its token expires.
type SessionRepo interface {
	// Create persists a session and returns it with its store-assigned id.
	Create(ctx context.Context, s domain.Session) (domain.Session, error)

	// GetByID returns the session. Returns domain.ErrNotFound if it was
	// never created or has been deleted.
	GetByID(ctx context.Context, id string) (domain.Session, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
}

type pgSessionRepo struct {
	db db
}

// NewSessionRepo constructs a SessionRepo backed by the provided db connection.
func NewSessionRepo(db db) SessionRepo {
	return &pgSessionRepo{db: db}
}

func (r *pgSessionRepo) Create(ctx context.Context, s domain.Session) (domain.Session, error) {
	const q = `
		INSERT INTO sessions (user_id, email, created_at, expires_at)
		VALUES (@user_id, @email, @created_at, @expires_at)
		RETURNING id, user_id, email, created_at, expires_at`

	args := pgx.NamedArgs{
		"user_id":    s.UserID,
		"email":      s.Email,
		"created_at": s.CreatedAt,
		"expires_at": s.ExpiresAt,
	}
	out, err := scanSession(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Create: %w", err)
	}
	return out, nil
}

func (r *pgSessionRepo) GetByID(ctx context.Context, id string) (domain.Session, error) {
	uid, err := parseID(id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.GetByID: %w", err)
	}

	const q = `
		SELECT id, user_id, email, created_at, expires_at
		FROM sessions
		WHERE id = @id`

	out, err := scanSession(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": uid}))
	if err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.GetByID: %w", err)
	}
	return out, nil
}

func (r *pgSessionRepo) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = @id`, pgx.NamedArgs{"id": uid}); err != nil {
		return fmt.Errorf("repo.SessionRepo.Delete: %w", err)
	}
	return nil
}

func scanSession(s scanner) (domain.Session, error) {
	var (
		out domain.Session
		id  pgtype.UUID
	)
	if err := s.Scan(&id, &out.UserID, &out.Email, &out.CreatedAt, &out.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	out.ID = uuid.UUID(id.Bytes).String()
	return out, nil
}
