package authcore

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// OAuthProvider is the handshake surface the server mounts under
// /api/auth/{name}. Implementations live in the oauth2 subpackage.
type OAuthProvider interface {
	HandleStart(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
}

// Server orchestrates the auth flows over HTTP. It sequences collaborators
// only; all business rules live in the Reconciler.
type Server struct {
	Reconciler *Reconciler
	Tokens     *TokenService
	Roles      RoleStore
	Metrics    *Collector

	// FrontendURL is where browser flows (verification links, OAuth
	// callbacks) redirect to.
	FrontendURL string

	providers map[string]OAuthProvider
}

// NewServer creates a Server. Providers are mounted with MountProvider
// before calling Handler.
func NewServer(rec *Reconciler, tokens *TokenService, roles RoleStore, frontendURL string) *Server {
	return &Server{
		Reconciler:  rec,
		Tokens:      tokens,
		Roles:       roles,
		FrontendURL: frontendURL,
		providers:   make(map[string]OAuthProvider),
	}
}

// MountProvider registers an OAuth provider under /api/auth/{name}.
func (s *Server) MountProvider(name string, p OAuthProvider) *Server {
	s.providers[name] = p
	return s
}

// Handler builds the route table. Registration is explicit and static: every
// route is listed here, checkable at startup.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/user/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/user/verify-token", s.handleVerifyToken).Methods(http.MethodGet)
	r.HandleFunc("/api/user/login", s.handleLogin).Methods(http.MethodPost)
	r.Handle("/api/user/fetch-token-data", s.RequireToken(http.HandlerFunc(s.handleFetchTokenData))).Methods(http.MethodGet)

	for name, provider := range s.providers {
		r.HandleFunc("/api/auth/"+name, provider.HandleStart).Methods(http.MethodGet)
		r.HandleFunc("/api/auth/"+name+"/callback", provider.HandleCallback).Methods(http.MethodGet)
	}

	roles := r.PathPrefix("/api/roles").Subrouter()
	roles.Use(s.RequireToken)
	roles.HandleFunc("/create", s.handleCreateRole).Methods(http.MethodPost)
	roles.HandleFunc("/all", s.handleListRoles).Methods(http.MethodGet)
	roles.HandleFunc("/update/{id}", s.handleUpdateRole).Methods(http.MethodPut)
	roles.HandleFunc("/delete/{id}", s.handleDeleteRole).Methods(http.MethodDelete)
	roles.HandleFunc("/{id}", s.handleGetRole).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "URL NOT FOUND")
	})

	return r
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.Reconciler.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.Metrics.RecordRegistration()
	writeJSON(w, http.StatusOK, map[string]any{"message": result.Message})
}

func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token is required")
		return
	}

	if err := s.Reconciler.VerifyEmail(r.Context(), token); err != nil {
		// no redirect on failure: the link is dead, tell the client why
		s.respondError(w, err)
		return
	}

	s.Metrics.RecordVerification()
	http.Redirect(w, r, s.FrontendURL+"/login?emailVerified=true", http.StatusFound)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.Reconciler.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			s.Metrics.RecordLogin("invalid")
		case errors.Is(err, ErrVerificationRequired):
			s.Metrics.RecordLogin("unverified")
		}
		s.respondError(w, err)
		return
	}

	s.Metrics.RecordLogin("success")
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   result.Token,
		"user":    result.User,
		"message": "Login successful",
	})
}

func (s *Server) handleFetchTokenData(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	user, err := s.Reconciler.Users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  user.Profile(),
		"token": TokenFromContext(r.Context()),
	})
}

// HandleFederatedIdentity consumes a normalized provider assertion from an
// OAuth callback. These endpoints are navigated, not fetched, so both
// outcomes are redirects: the frontend with ?token= on success, the login
// page with ?error= on failure.
func (s *Server) HandleFederatedIdentity(provider, subjectID, email, accessToken string, w http.ResponseWriter, r *http.Request) {
	result, err := s.Reconciler.FederatedLogin(r.Context(), Identity{
		Provider:    provider,
		SubjectID:   subjectID,
		Email:       email,
		AccessToken: accessToken,
	})
	if err != nil {
		slog.Error("federated login failed", "provider", provider, "err", err)
		s.Metrics.RecordFederatedLogin(provider, "failure")
		http.Redirect(w, r, s.FrontendURL+"/login?error="+url.QueryEscape(err.Error()), http.StatusFound)
		return
	}

	s.Metrics.RecordFederatedLogin(provider, "success")
	http.Redirect(w, r, s.FrontendURL+"?token="+url.QueryEscape(result.Token), http.StatusFound)
}

// respondError maps reconciliation failures onto the HTTP taxonomy. Unknown
// errors become a generic 500; nothing propagates to the transport layer.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrWeakPassword), errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrRoleExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrVerificationRequired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrTokenInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRoleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("unhandled error at controller boundary", "err", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   map[string]any{"message": message},
	})
}
