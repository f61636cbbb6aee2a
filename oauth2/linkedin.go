package oauth2

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

type LinkedinOAuth2 struct {
	*BaseOAuth2
}

// NewLinkedinOAuth2 uses the OpenID Connect flavoured Sign In with LinkedIn:
// an explicit authorization-code exchange followed by a /v2/userinfo fetch.
func NewLinkedinOAuth2(clientId, clientSecret, callbackUrl string, handleIdentity HandleIdentityFunc) *LinkedinOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("LINKEDIN_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("LINKEDIN_CLIENT_SECRET")
	}

	out := &LinkedinOAuth2{
		BaseOAuth2: &BaseOAuth2{
			Provider:       "linkedin",
			UserInfoURL:    "https://api.linkedin.com/v2/userinfo",
			HandleIdentity: handleIdentity,
			oauthConfig: oauth2.Config{
				ClientID:     clientId,
				ClientSecret: clientSecret,
				RedirectURL:  callbackUrl,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     linkedin.Endpoint,
			},
		},
	}
	out.parse = parseLinkedinIdentity
	return out
}

func parseLinkedinIdentity(userInfo map[string]any) (subjectID, email string, err error) {
	subjectID = stringField(userInfo, "sub")
	email = stringField(userInfo, "email")
	if subjectID == "" || email == "" {
		return "", "", fmt.Errorf("linkedin userinfo missing sub or email")
	}
	return subjectID, email, nil
}
