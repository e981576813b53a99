package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// UserRepo defines the persistence operations for user profiles.
type UserRepo interface {
	// GetByID returns the profile for a provider subject id.
	// Returns domain.ErrNotFound if the user has never signed in.
	GetByID(ctx context.Context, id string) (domain.UserProfile, error)

	// Create writes a full profile. If a concurrent sign-in created the row
	// first, only its last-login is updated.
	Create(ctx context.Context, p domain.UserProfile) error

	// TouchLastLogin updates only the last-login timestamp.
	// Returns domain.ErrNotFound if the user does not exist.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

func (r *pgUserRepo) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	const q = `
		SELECT id, display_name, avatar_url, email, last_login
		FROM users
		WHERE id = @id`

	var p domain.UserProfile
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).
		Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.Email, &p.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, fmt.Errorf("repo.UserRepo.GetByID: %w", domain.ErrNotFound)
		}
		return domain.UserProfile{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return p, nil
}

func (r *pgUserRepo) Create(ctx context.Context, p domain.UserProfile) error {
	const q = `
		INSERT INTO users (id, display_name, avatar_url, email, last_login)
		VALUES (@id, @display_name, @avatar_url, @email, @last_login)
		ON CONFLICT (id) DO UPDATE SET last_login = EXCLUDED.last_login`

	args := pgx.NamedArgs{
		"id":           p.ID,
		"display_name": p.DisplayName,
		"avatar_url":   p.AvatarURL,
		"email":        p.Email,
		"last_login":   p.LastLogin,
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("repo.UserRepo.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE users SET last_login = @at WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "at": at})
	if err != nil {
		return fmt.Errorf("repo.UserRepo.TouchLastLogin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.UserRepo.TouchLastLogin: %w", domain.ErrNotFound)
	}
	return nil
}
