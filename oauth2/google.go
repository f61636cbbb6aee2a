package oauth2

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type GoogleOAuth2 struct {
	*BaseOAuth2
}

func NewGoogleOAuth2(clientId, clientSecret, callbackUrl string, handleIdentity HandleIdentityFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}

	out := &GoogleOAuth2{
		BaseOAuth2: &BaseOAuth2{
			Provider:       "google",
			UserInfoURL:    "https://www.googleapis.com/oauth2/v2/userinfo",
			HandleIdentity: handleIdentity,
			oauthConfig: oauth2.Config{
				ClientID:     clientId,
				ClientSecret: clientSecret,
				RedirectURL:  callbackUrl,
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
		},
	}
	out.parse = parseGoogleIdentity
	return out
}

func parseGoogleIdentity(userInfo map[string]any) (subjectID, email string, err error) {
	// v2 userinfo calls the subject "id"; the OIDC variant calls it "sub"
	subjectID = stringField(userInfo, "id", "sub")
	email = stringField(userInfo, "email")
	if subjectID == "" || email == "" {
		return "", "", fmt.Errorf("google userinfo missing id or email")
	}
	return subjectID, email, nil
}
