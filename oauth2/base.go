// Package oauth2 implements the provider handshakes (Google, Facebook,
// LinkedIn) for federated login. Each provider redirects the browser out
// with a per-request state cookie, validates that state on the callback,
// exchanges the authorization code, fetches the provider's userinfo
// document and hands a flat normalized identity to the registered
// HandleIdentity callback. Providers make no account decisions; mapping an
// identity to a user is the caller's job.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// HandleIdentityFunc consumes a normalized identity assertion after a
// successful handshake. All values are plain facts from the provider.
type HandleIdentityFunc func(provider, subjectID, email, accessToken string, w http.ResponseWriter, r *http.Request)

// identityParser extracts the subject id and email from a provider's
// userinfo payload.
type identityParser func(userInfo map[string]any) (subjectID, email string, err error)

type BaseOAuth2 struct {
	// Provider name, e.g. "google"
	Provider string

	// UserInfoURL is the URL to fetch user info from. Defaults per provider.
	// Can be overridden for testing.
	UserInfoURL string

	// AuthFailureURL is where the browser is redirected when the handshake
	// fails. The failure reason is appended as an error query parameter.
	AuthFailureURL string

	// HandleIdentity is called after a successful handshake
	HandleIdentity HandleIdentityFunc

	// HTTPClient is used for userinfo fetches. Defaults to http.DefaultClient.
	// Can be overridden for testing.
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	parse       identityParser
}

func (b *BaseOAuth2) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// SetEndpointURLs overrides the provider's auth, token and userinfo URLs.
// Used by tests to point the handshake at a mock provider.
func (b *BaseOAuth2) SetEndpointURLs(authURL, tokenURL, userInfoURL string) {
	b.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	b.UserInfoURL = userInfoURL
}

// HandleStart begins the handshake: it drops a fresh state cookie and
// redirects the browser to the provider's consent screen.
func (b *BaseOAuth2) HandleStart(w http.ResponseWriter, r *http.Request) {
	state := generateStateOauthCookie(w)
	http.Redirect(w, r, b.oauthConfig.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback finishes the handshake. The state parameter is checked
// against the cookie for every provider before any code exchange happens.
func (b *BaseOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := validateStateCookie(w, r); err != nil {
		slog.Info("oauth state validation failed", "provider", b.Provider, "err", err)
		b.failRedirect(w, r, "invalid oauth state")
		return
	}

	token, err := b.oauthConfig.Exchange(context.Background(), r.FormValue("code"))
	if err != nil {
		slog.Info("oauth code exchange failed", "provider", b.Provider, "err", err)
		b.failRedirect(w, r, "code exchange failed")
		return
	}

	userInfo, err := b.fetchUserInfo(r.Context(), token)
	if err != nil {
		slog.Info("oauth userinfo fetch failed", "provider", b.Provider, "err", err)
		b.failRedirect(w, r, "failed to fetch user info")
		return
	}

	subjectID, email, err := b.parse(userInfo)
	if err != nil {
		slog.Info("oauth userinfo missing fields", "provider", b.Provider, "err", err)
		b.failRedirect(w, r, err.Error())
		return
	}

	b.HandleIdentity(b.Provider, subjectID, email, token.AccessToken, w, r)
}

func (b *BaseOAuth2) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := b.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", response.StatusCode)
	}

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return userInfo, nil
}

func (b *BaseOAuth2) failRedirect(w http.ResponseWriter, r *http.Request, reason string) {
	target := b.AuthFailureURL
	if target == "" {
		target = "/login"
	}
	sep := "?"
	if u, err := url.Parse(target); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	http.Redirect(w, r, target+sep+"error="+url.QueryEscape(reason), http.StatusFound)
}

func stringField(userInfo map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := userInfo[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
