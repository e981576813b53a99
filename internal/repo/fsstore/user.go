package fsstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/repo"
)

type userStore struct {
	client *firestore.Client
}

var _ repo.UserRepo = (*userStore)(nil)

func (s *userStore) ref(id string) (*firestore.DocumentRef, error) {
	return docRef(s.client.Collection(usersCollection), id)
}

func (s *userStore) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	ref, err := s.ref(id)
	if err != nil {
		return domain.UserProfile{}, wrap("UserRepo.GetByID", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.UserProfile{}, wrap("UserRepo.GetByID", err)
	}
	var p domain.UserProfile
	if err := snap.DataTo(&p); err != nil {
		return domain.UserProfile{}, wrap("UserRepo.GetByID", err)
	}
	p.ID = ref.ID
	return p, nil
}

// Create writes the full profile. If another sign-in created the document
// first, only lastLogin is written so the original profile fields stay.
func (s *userStore) Create(ctx context.Context, p domain.UserProfile) error {
	ref, err := s.ref(p.ID)
	if err != nil {
		return wrap("UserRepo.Create", err)
	}
	_, err = ref.Create(ctx, p)
	if status.Code(err) == codes.AlreadyExists {
		return s.TouchLastLogin(ctx, p.ID, p.LastLogin)
	}
	if err != nil {
		return wrap("UserRepo.Create", err)
	}
	return nil
}

func (s *userStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	ref, err := s.ref(id)
	if err != nil {
		return wrap("UserRepo.TouchLastLogin", err)
	}
	if _, err := ref.Update(ctx, []firestore.Update{{Path: "lastLogin", Value: at}}); err != nil {
		return wrap("UserRepo.TouchLastLogin", err)
	}
	return nil
}

type sessionStore struct {
	client *firestore.Client
}

var _ repo.SessionRepo = (*sessionStore)(nil)

func (s *sessionStore) col() *firestore.CollectionRef {
	return s.client.Collection(sessionsCollection)
}

func (s *sessionStore) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	ref := s.col().NewDoc()
	if _, err := ref.Create(ctx, session); err != nil {
		return domain.Session{}, wrap("SessionRepo.Create", err)
	}
	session.ID = ref.ID
	return session, nil
}

func (s *sessionStore) GetByID(ctx context.Context, id string) (domain.Session, error) {
	ref, err := docRef(s.col(), id)
	if err != nil {
		return domain.Session{}, wrap("SessionRepo.GetByID", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Session{}, wrap("SessionRepo.GetByID", err)
	}
	var session domain.Session
	if err := snap.DataTo(&session); err != nil {
		return domain.Session{}, wrap("SessionRepo.GetByID", err)
	}
	session.ID = ref.ID
	return session, nil
}

// Delete is idempotent: Firestore does not fail deletes of absent documents.
func (s *sessionStore) Delete(ctx context.Context, id string) error {
	ref, err := docRef(s.col(), id)
	if err != nil {
		return nil
	}
	if _, err := ref.Delete(ctx); err != nil {
		return wrap("SessionRepo.Delete", err)
	}
	return nil
}
