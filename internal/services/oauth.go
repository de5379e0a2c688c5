package services

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/desertthunder/onair/internal/shared"
)

const (
	nicoAuthURL  = "https://oauth.nicovideo.jp/oauth2/authorize"
	nicoTokenURL = "https://oauth.nicovideo.jp/oauth2/token"
)

// BroadcastScopes are the OAuth scopes needed to manage the user's programs.
var BroadcastScopes = []string{"openid", "profile", "user.authorities.lives.broadcast"}

// NewOAuthConfig builds the OAuth2 configuration for Nicolive login.
func NewOAuthConfig(creds shared.NicoliveConfig) (*oauth2.Config, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: nicolive client_id and client_secret", shared.ErrMissingCredentials)
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       BroadcastScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  nicoAuthURL,
			TokenURL: nicoTokenURL,
		},
	}, nil
}

// AuthURL returns the authorization URL for state with offline access requested.
// A non-empty verifier adds an S256 PKCE challenge.
func AuthURL(config *oauth2.Config, state, verifier string) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return config.AuthCodeURL(state, opts...)
}
