package domain

import "time"

// UserProfile is keyed by the identity provider's subject id. Only
// LastLogin changes after the first sign-in.
type UserProfile struct {
	ID          string    `firestore:"uid"`
	DisplayName string    `firestore:"displayName"`
	AvatarURL   string    `firestore:"photoURL"`
	Email       string    `firestore:"email"`
	LastLogin   time.Time `firestore:"lastLogin"`
}

// Identity is what an identity provider returns after a successful sign-in.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Profile builds the initial profile for a first sign-in.
func (i Identity) Profile(now time.Time) UserProfile {
	return UserProfile{
		ID:          i.SubjectID,
		DisplayName: i.DisplayName,
		AvatarURL:   i.AvatarURL,
		Email:       i.Email,
		LastLogin:   now,
	}
}

// Session is a server-side session record. Deleting it revokes every token
// issued for it.
type Session struct {
	ID        string    `firestore:"-"`
	UserID    string    `firestore:"userId"`
	Email     string    `firestore:"email"`
	CreatedAt time.Time `firestore:"createdAt"`
	ExpiresAt time.Time `firestore:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
