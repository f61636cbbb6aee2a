package oauth2

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

type FacebookOAuth2 struct {
	*BaseOAuth2
}

func NewFacebookOAuth2(clientId, clientSecret, callbackUrl string, handleIdentity HandleIdentityFunc) *FacebookOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("FACEBOOK_APP_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("FACEBOOK_APP_SECRET")
	}

	out := &FacebookOAuth2{
		BaseOAuth2: &BaseOAuth2{
			Provider:       "facebook",
			UserInfoURL:    "https://graph.facebook.com/me?fields=id,name,email",
			HandleIdentity: handleIdentity,
			oauthConfig: oauth2.Config{
				ClientID:     clientId,
				ClientSecret: clientSecret,
				RedirectURL:  callbackUrl,
				Scopes:       []string{"public_profile", "email"},
				Endpoint:     facebook.Endpoint,
			},
		},
	}
	out.parse = parseFacebookIdentity
	return out
}

func parseFacebookIdentity(userInfo map[string]any) (subjectID, email string, err error) {
	subjectID = stringField(userInfo, "id")
	email = stringField(userInfo, "email")
	if subjectID == "" || email == "" {
		return "", "", fmt.Errorf("facebook userinfo missing id or email")
	}
	return subjectID, email, nil
}
