package authcore

// Error codes returned in JSON error payloads
const (
	ErrCodeMissingField         = "missing_field"
	ErrCodeInvalidEmail         = "invalid_email"
	ErrCodeWeakPassword         = "weak_password"
	ErrCodeEmailExists          = "email_exists"
	ErrCodeInvalidCreds         = "invalid_credentials"
	ErrCodeVerificationRequired = "verification_required"
	ErrCodeTokenInvalid         = "token_invalid"
	ErrCodeNotFound             = "not_found"
	ErrCodeDuplicateName        = "duplicate_name"
)

// AuthError represents an authentication/validation error with a stable
// code and the field the error relates to (if any).
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates a new AuthError
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// Reconciliation failure taxonomy. Handlers map these onto HTTP statuses;
// nothing below the controller boundary knows about status codes.
// errors.Is matches by identity, so these must be returned as-is or wrapped.
var (
	ErrMissingFields = NewAuthError(ErrCodeMissingField, "Email and password are required", "email")
	ErrInvalidEmail  = NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	ErrWeakPassword  = NewAuthError(ErrCodeWeakPassword, "Password should be at least 6 characters", "password")

	// ErrDuplicateEmail is also the error UserStore.Create returns when the
	// unique-email index rejects a write. The reconciler relies on this to
	// re-resolve create/create races as link-or-login.
	ErrDuplicateEmail = NewAuthError(ErrCodeEmailExists, "Email already exists", "email")

	// Identical message for unknown email and wrong password so that the
	// login endpoint cannot be used for email enumeration.
	ErrInvalidCredentials = NewAuthError(ErrCodeInvalidCreds, "Invalid Credentials", "")

	ErrVerificationRequired = NewAuthError(ErrCodeVerificationRequired,
		"Email verification required. Please check your inbox for the verification email and click the link to confirm your account.", "")

	ErrTokenInvalid = NewAuthError(ErrCodeTokenInvalid, "Token Expired or Invalid", "")

	ErrUserNotFound = NewAuthError(ErrCodeNotFound, "User not found", "")
	ErrRoleNotFound = NewAuthError(ErrCodeNotFound, "Role not found", "")
	ErrRoleExists   = NewAuthError(ErrCodeDuplicateName, "Role already exists", "name")
)
