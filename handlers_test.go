package authcore_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ac "github.com/rjoshi/authcore"
	gormstore "github.com/rjoshi/authcore/stores/gorm"
)

const testFrontendURL = "http://localhost:3000"

type testEnv struct {
	server *ac.Server
	http   http.Handler
	mailer *captureMailer
	tokens *ac.TokenService
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	mailer := &captureMailer{}
	tokens := newTestTokenService()
	rec := &ac.Reconciler{
		Users:      gormstore.NewUserStore(db),
		Tokens:     tokens,
		Mailer:     mailer,
		BackendURL: "http://localhost:4000",
	}
	srv := ac.NewServer(rec, tokens, gormstore.NewRoleStore(db), testFrontendURL)
	return &testEnv{server: srv, http: srv.Handler(), mailer: mailer, tokens: tokens}
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return e.request(t, http.MethodPost, path, payload, headers)
}

func (e *testEnv) request(t *testing.T, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.http.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rr.Body.String())
	}
	return out
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rr)
	errObj, _ := body["error"].(map[string]any)
	msg, _ := errObj["message"].(string)
	return msg
}

// registerAndVerify walks a user through registration and the email link
func (e *testEnv) registerAndVerify(t *testing.T, email, password string) {
	t.Helper()
	if rr := e.postJSON(t, "/api/user/register", map[string]string{"email": email, "password": password}, nil); rr.Code != http.StatusOK {
		t.Fatalf("register returned %d: %s", rr.Code, rr.Body.String())
	}
	rr := e.request(t, http.MethodGet, "/api/user/verify-token?token="+e.mailer.token(t), nil, nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("verify-token returned %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRegisterEndpoint(t *testing.T) {
	env := setupServer(t)

	rr := env.postJSON(t, "/api/user/register", map[string]string{"email": "a@x.com", "password": "secret1"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["message"] != "Verification link sent to your email" {
		t.Errorf("unexpected body: %v", body)
	}
	// token reaches the user by email only, never in the response
	if _, hasToken := body["token"]; hasToken {
		t.Error("register response must not carry a token")
	}
	if env.mailer.sent != 1 {
		t.Errorf("expected 1 verification email, got %d", env.mailer.sent)
	}

	tests := []struct {
		name    string
		payload map[string]string
		status  int
		message string
	}{
		{"duplicate email", map[string]string{"email": "a@x.com", "password": "secret1"}, http.StatusBadRequest, "Email already exists"},
		{"weak password", map[string]string{"email": "b@x.com", "password": "12345"}, http.StatusBadRequest, "Password should be at least 6 characters"},
		{"missing fields", map[string]string{"email": "b@x.com"}, http.StatusBadRequest, "Email and password are required"},
		{"bad email", map[string]string{"email": "nope", "password": "secret1"}, http.StatusBadRequest, "Invalid email format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.postJSON(t, "/api/user/register", tt.payload, nil)
			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if msg := errorMessage(t, rr); msg != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, msg)
			}
		})
	}
}

func TestVerifyTokenEndpoint(t *testing.T) {
	env := setupServer(t)

	if rr := env.request(t, http.MethodGet, "/api/user/verify-token", nil, nil); rr.Code != http.StatusBadRequest {
		t.Errorf("missing token: expected 400, got %d", rr.Code)
	}
	// failure is a JSON error, not a redirect
	if rr := env.request(t, http.MethodGet, "/api/user/verify-token?token=garbage", nil, nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad token: expected 400, got %d", rr.Code)
	}

	env.postJSON(t, "/api/user/register", map[string]string{"email": "a@x.com", "password": "secret1"}, nil)
	rr := env.request(t, http.MethodGet, "/api/user/verify-token?token="+env.mailer.token(t), nil, nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != testFrontendURL+"/login?emailVerified=true" {
		t.Errorf("unexpected redirect target %q", loc)
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupServer(t)
	env.registerAndVerify(t, "a@x.com", "secret1")

	rr := env.postJSON(t, "/api/user/login", map[string]string{"email": "a@x.com", "password": "secret1"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["message"] != "Login successful" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	if token, _ := body["token"].(string); token == "" {
		t.Error("expected token in login response")
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "a@x.com" || user["isVerified"] != true {
		t.Errorf("unexpected user payload: %v", user)
	}
	// the password hash must never appear in any outward payload
	if _, leaked := user["passwordHash"]; leaked {
		t.Error("password hash leaked in login response")
	}

	// unknown email and wrong password: identical message and status
	rrUnknown := env.postJSON(t, "/api/user/login", map[string]string{"email": "unknown@x.com", "password": "whatever"}, nil)
	rrWrong := env.postJSON(t, "/api/user/login", map[string]string{"email": "a@x.com", "password": "wrongpass"}, nil)
	if rrUnknown.Code != http.StatusUnauthorized || rrWrong.Code != http.StatusUnauthorized {
		t.Errorf("expected 401/401, got %d/%d", rrUnknown.Code, rrWrong.Code)
	}
	if errorMessage(t, rrUnknown) != errorMessage(t, rrWrong) {
		t.Errorf("credential errors must be indistinguishable: %q vs %q",
			errorMessage(t, rrUnknown), errorMessage(t, rrWrong))
	}
}

func TestLoginUnverifiedUser(t *testing.T) {
	env := setupServer(t)
	env.postJSON(t, "/api/user/register", map[string]string{"email": "a@x.com", "password": "secret1"}, nil)

	rr := env.postJSON(t, "/api/user/login", map[string]string{"email": "a@x.com", "password": "secret1"}, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for unverified user, got %d", rr.Code)
	}
	var body map[string]any
	json.Unmarshal(rr.Body.Bytes(), &body)
	if _, hasToken := body["token"]; hasToken {
		t.Error("unverified login must never include a token")
	}
}

func TestFetchTokenDataEndpoint(t *testing.T) {
	env := setupServer(t)
	env.registerAndVerify(t, "a@x.com", "secret1")

	login := env.postJSON(t, "/api/user/login", map[string]string{"email": "a@x.com", "password": "secret1"}, nil)
	token, _ := decodeBody(t, login)["token"].(string)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rr := env.request(t, http.MethodGet, "/api/user/fetch-token-data", nil, headers)
			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}

	rr := env.request(t, http.MethodGet, "/api/user/fetch-token-data", nil,
		map[string]string{"Authorization": "Bearer " + token})
	body := decodeBody(t, rr)
	if body["token"] != token {
		t.Error("expected the bearer token echoed back")
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "a@x.com" {
		t.Errorf("unexpected user payload: %v", user)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := setupServer(t)
	rr := env.request(t, http.MethodGet, "/api/nope", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != "URL NOT FOUND" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestRoleCRUDEndpoints(t *testing.T) {
	env := setupServer(t)

	auth := func(t *testing.T) map[string]string {
		token, err := env.tokens.Issue("admin-user", "admin@x.com")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		return map[string]string{"Authorization": "Bearer " + token}
	}

	rolePayload := map[string]any{
		"name":              "editor",
		"actionsPermission": []string{"CREATE", "EDIT"},
		"pagesPermission":   []string{"dashboard", "posts"},
	}

	// role routes sit behind the token middleware
	if rr := env.postJSON(t, "/api/roles/create", rolePayload, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: expected 401, got %d", rr.Code)
	}

	headers := auth(t)

	rr := env.postJSON(t, "/api/roles/create", rolePayload, headers)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody(t, rr)
	roleID, _ := created["id"].(string)
	if roleID == "" {
		t.Fatal("created role has no id")
	}
	// READ is compulsory even when not requested
	actions, _ := created["actionsPermission"].([]any)
	foundRead := false
	for _, a := range actions {
		if a == "READ" {
			foundRead = true
		}
	}
	if !foundRead {
		t.Errorf("READ missing from actionsPermission: %v", actions)
	}

	if rr := env.postJSON(t, "/api/roles/create", rolePayload, headers); rr.Code != http.StatusBadRequest {
		t.Errorf("duplicate name: expected 400, got %d", rr.Code)
	}

	if rr := env.postJSON(t, "/api/roles/create", map[string]any{"name": "empty"}, headers); rr.Code != http.StatusBadRequest {
		t.Errorf("missing fields: expected 400, got %d", rr.Code)
	}

	if rr := env.request(t, http.MethodGet, "/api/roles/all", nil, headers); rr.Code != http.StatusOK {
		t.Errorf("list: expected 200, got %d", rr.Code)
	}

	if rr := env.request(t, http.MethodGet, "/api/roles/"+roleID, nil, headers); rr.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rr.Code)
	}
	if rr := env.request(t, http.MethodGet, "/api/roles/missing-id", nil, headers); rr.Code != http.StatusNotFound {
		t.Errorf("get missing: expected 404, got %d", rr.Code)
	}

	update := map[string]any{
		"name":              "editor",
		"actionsPermission": []string{"DELETE"},
		"pagesPermission":   []string{"dashboard"},
	}
	if rr := env.request(t, http.MethodPut, "/api/roles/update/"+roleID, update, headers); rr.Code != http.StatusOK {
		t.Errorf("update: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := env.request(t, http.MethodPut, "/api/roles/update/missing-id", update, headers); rr.Code != http.StatusNotFound {
		t.Errorf("update missing: expected 404, got %d", rr.Code)
	}

	// renaming onto another role's name is rejected
	other := map[string]any{
		"name":              "viewer",
		"actionsPermission": []string{},
		"pagesPermission":   []string{},
	}
	env.postJSON(t, "/api/roles/create", other, headers)
	conflict := map[string]any{
		"name":              "viewer",
		"actionsPermission": []string{},
		"pagesPermission":   []string{},
	}
	if rr := env.request(t, http.MethodPut, "/api/roles/update/"+roleID, conflict, headers); rr.Code != http.StatusBadRequest {
		t.Errorf("rename conflict: expected 400, got %d", rr.Code)
	}

	if rr := env.request(t, http.MethodDelete, "/api/roles/delete/"+roleID, nil, headers); rr.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", rr.Code)
	}
	if rr := env.request(t, http.MethodDelete, "/api/roles/delete/"+roleID, nil, headers); rr.Code != http.StatusNotFound {
		t.Errorf("delete again: expected 404, got %d", rr.Code)
	}
}

func TestFederatedIdentityHandler(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback", nil)
	rr := httptest.NewRecorder()
	env.server.HandleFederatedIdentity("google", "g-1", "a@x.com", "tok", rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	loc := rr.Header().Get("Location")
	if loc == "" || loc == testFrontendURL {
		t.Fatalf("unexpected redirect %q", loc)
	}
	prefix := testFrontendURL + "?token="
	if len(loc) <= len(prefix) || loc[:len(prefix)] != prefix {
		t.Errorf("expected redirect carrying token, got %q", loc)
	}

	// assertion without an email cannot be reconciled: error redirect
	rr = httptest.NewRecorder()
	env.server.HandleFederatedIdentity("google", "g-1", "", "tok", rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	errPrefix := testFrontendURL + "/login?error="
	loc = rr.Header().Get("Location")
	if len(loc) <= len(errPrefix) || loc[:len(errPrefix)] != errPrefix {
		t.Errorf("expected error redirect, got %q", loc)
	}
}
