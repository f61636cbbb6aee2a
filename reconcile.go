package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Reconciler maps an authentication attempt - local credentials, a
// verification token, or an external identity assertion - to exactly one
// user, creating or linking as needed.
//
// The reconciler holds no locks of its own: the unique-email index in the
// store is the single arbiter for concurrent creates. Whenever a create
// loses that race the reconciler re-reads the row and continues as a
// link or login instead of failing.
type Reconciler struct {
	Users  UserStore
	Tokens *TokenService

	// Mailer delivers verification emails. Optional; when nil, registration
	// still succeeds but no email goes out.
	Mailer SendEmail

	// BackendURL is the base for verification links sent by email.
	BackendURL string
}

// RegistrationResult is what a successful registration hands back to the
// caller. The verification token itself travels only by email.
type RegistrationResult struct {
	UserID  string
	Message string
}

// LoginResult carries the issued token and the user's outward profile.
type LoginResult struct {
	Token string
	User  Profile
}

// Register creates a local-credential account and dispatches a verification
// email. The session token is never returned synchronously; the caller gets
// a pending-verification result only.
func (r *Reconciler) Register(ctx context.Context, email, password string) (*RegistrationResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := r.Users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
	}
	if err := r.Users.Create(ctx, user); err != nil {
		// Another request won the unique-email race between our lookup and
		// the insert. Same outcome as the pre-check.
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := r.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if r.Mailer != nil {
		link := r.BackendURL + "/api/user/verify-token?token=" + token
		if err := r.Mailer.SendVerificationEmail(email, link); err != nil {
			return nil, fmt.Errorf("failed to send verification email: %w", err)
		}
	}

	slog.Info("registered local user", "userId", user.ID)
	return &RegistrationResult{
		UserID:  user.ID,
		Message: "Verification link sent to your email",
	}, nil
}

// VerifyEmail validates a verification token and marks the embedded user as
// verified. Re-verifying an already-verified user is not an error.
func (r *Reconciler) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenInvalid
	}
	claims, err := r.Tokens.Verify(token)
	if err != nil {
		return ErrTokenInvalid
	}
	if err := r.Users.MarkVerified(ctx, claims.Subject); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

// Login authenticates local credentials. Unknown email and wrong password
// produce the identical ErrInvalidCredentials; an unverified account with
// correct credentials produces ErrVerificationRequired and never a token.
func (r *Reconciler) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := r.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Provider-only accounts have no hash; they cannot log in locally.
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, err
	}

	if !user.IsVerified {
		return nil, ErrVerificationRequired
	}

	token, err := r.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user.Profile()}, nil
}

// FederatedLogin resolves a verified provider assertion to a single user.
// Three cases: unseen email creates a verified user with the link populated;
// an existing user without this provider's link gains the link (everything
// else untouched, password hash included); an already-linked user is left
// alone. A token is issued for the resolved user in all three cases.
func (r *Reconciler) FederatedLogin(ctx context.Context, assertion Identity) (*LoginResult, error) {
	if assertion.Email == "" || assertion.SubjectID == "" {
		return nil, ErrMissingFields
	}

	user, err := r.Users.GetByEmail(ctx, assertion.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		user, err = r.createFederatedUser(ctx, assertion)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	default:
		if !user.HasProviderLink(assertion.Provider) {
			if err := r.Users.SetProviderLink(ctx, user.ID, assertion.Provider, assertion.SubjectID, assertion.AccessToken); err != nil {
				return nil, fmt.Errorf("failed to link provider: %w", err)
			}
			if user, err = r.Users.GetByID(ctx, user.ID); err != nil {
				return nil, fmt.Errorf("failed to reload user: %w", err)
			}
		}
		// already linked: no mutation
	}

	token, err := r.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user.Profile()}, nil
}

func (r *Reconciler) createFederatedUser(ctx context.Context, assertion Identity) (*User, error) {
	user := &User{
		ID:    uuid.NewString(),
		Email: assertion.Email,
		// federated identity is trusted as pre-verified
		IsVerified: true,
	}
	switch assertion.Provider {
	case ProviderGoogle:
		user.GoogleID = assertion.SubjectID
		user.GoogleAccessToken = assertion.AccessToken
	case ProviderFacebook:
		user.FacebookID = assertion.SubjectID
		user.FacebookAccessToken = assertion.AccessToken
	case ProviderLinkedin:
		user.LinkedinID = assertion.SubjectID
		user.LinkedinAccessToken = assertion.AccessToken
	default:
		return nil, fmt.Errorf("unknown provider %q", assertion.Provider)
	}

	err := r.Users.Create(ctx, user)
	if err == nil {
		slog.Info("created federated user", "userId", user.ID, "provider", assertion.Provider)
		return user, nil
	}
	if !errors.Is(err, ErrDuplicateEmail) {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// A concurrent request created the row first. Re-read and link instead.
	existing, lookupErr := r.Users.GetByEmail(ctx, assertion.Email)
	if lookupErr != nil {
		return nil, fmt.Errorf("failed to re-resolve user after duplicate: %w", lookupErr)
	}
	if !existing.HasProviderLink(assertion.Provider) {
		if err := r.Users.SetProviderLink(ctx, existing.ID, assertion.Provider, assertion.SubjectID, assertion.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to link provider: %w", err)
		}
		if existing, err = r.Users.GetByID(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to reload user: %w", err)
		}
	}
	return existing, nil
}
