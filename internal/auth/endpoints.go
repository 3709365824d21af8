package auth

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/tkoenig/gmailcli/internal/config"
)

const (
	googleRevokeEndpoint   = "https://oauth2.googleapis.com/revoke"
	googleUserInfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Scopes requested at login: read/modify mailbox state, send mail, and the
// OpenID claims used to label the authenticated account.
var Scopes = []string{
	gmail.GmailModifyScope,
	gmail.GmailSendScope,
	"openid",
	"email",
	"profile",
}

// Endpoints holds the fixed provider URLs. Production use always points at
// Google; tests substitute local stubs.
type Endpoints struct {
	oauth2.Endpoint
	Revoke   string
	UserInfo string
}

// GoogleEndpoints returns the Google OAuth2 endpoint set.
func GoogleEndpoints() Endpoints {
	return Endpoints{
		Endpoint: google.Endpoint,
		Revoke:   googleRevokeEndpoint,
		UserInfo: googleUserInfoEndpoint,
	}
}

// oauthConfig builds the oauth2 client configuration for a profile.
func oauthConfig(settings *config.Settings, ep Endpoints) *oauth2.Config {
	redirect := settings.RedirectURI
	if redirect == "" {
		redirect = config.DefaultRedirectURI
	}
	return &oauth2.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		Endpoint:     ep.Endpoint,
		RedirectURL:  redirect,
		Scopes:       Scopes,
	}
}
