package authcore

import (
	"context"
	"time"
)

// Provider names for federated logins
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderLinkedin = "linkedin"
)

// User is a single account keyed by email. PasswordHash is empty for
// accounts that only ever authenticated through a provider; such accounts
// cannot log in locally until a password is set.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsVerified   bool

	GoogleID          string
	GoogleAccessToken string

	FacebookID          string
	FacebookAccessToken string

	LinkedinID          string
	LinkedinAccessToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasProviderLink reports whether the given provider already has a subject
// id recorded on this user.
func (u *User) HasProviderLink(provider string) bool {
	switch provider {
	case ProviderGoogle:
		return u.GoogleID != ""
	case ProviderFacebook:
		return u.FacebookID != ""
	case ProviderLinkedin:
		return u.LinkedinID != ""
	}
	return false
}

// Profile is the outward-facing shape of a user. The password hash is never
// part of any response payload.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// Profile returns the user data safe to hand back to callers.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, IsVerified: u.IsVerified}
}

// Identity is a normalized external-provider assertion: facts only, no
// decisions. Provider callbacks produce one of these after the handshake;
// trusting its authenticity is the OAuth client's job, not the reconciler's.
type Identity struct {
	Provider    string
	SubjectID   string
	Email       string
	AccessToken string
}

// UserStore persists user records keyed by email.
//
// Create must return ErrDuplicateEmail (possibly wrapped) when the
// unique-email constraint rejects the write; the reconciler depends on
// that to resolve concurrent first-registration races.
type UserStore interface {
	Create(ctx context.Context, user *User) error

	// GetByEmail returns ErrUserNotFound if no user has this email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns ErrUserNotFound if no user has this id
	GetByID(ctx context.Context, id string) (*User, error)

	// MarkVerified sets isVerified=true. Idempotent.
	MarkVerified(ctx context.Context, id string) error

	// SetProviderLink records the provider's subject id and access token on
	// the user and marks the user verified. All other fields are untouched.
	SetProviderLink(ctx context.Context, id, provider, subjectID, accessToken string) error
}
