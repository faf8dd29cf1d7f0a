package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DriveScope grants full Drive access; folder provisioning and sidecar reads need it.
const DriveScope = "https://www.googleapis.com/auth/drive"

// ErrNotConfigured is returned when required Google credentials are missing.
var ErrNotConfigured = errors.New("google credentials not configured")

// GoogleCredentials carries the OAuth client and the long-lived refresh token
// obtained by the surrounding OAuth flow. It is passed explicitly into store
// constructors instead of living in a package-level client.
type GoogleCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string
	Scopes       []string
}

// Validate reports whether the credentials can build a client.
func (c GoogleCredentials) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(c.RefreshToken) == "" {
		return ErrNotConfigured
	}
	return nil
}

// OAuthConfig returns the oauth2 configuration for these credentials.
func (c GoogleCredentials) OAuthConfig() *oauth2.Config {
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = []string{DriveScope}
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}
}

// TokenSource returns a refreshing token source seeded with the refresh token.
func (c GoogleCredentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	seed := &oauth2.Token{RefreshToken: c.RefreshToken}
	return oauth2.ReuseTokenSource(nil, c.OAuthConfig().TokenSource(ctx, seed)), nil
}

// HTTPClient returns an authenticated client that refreshes access tokens as needed.
func (c GoogleCredentials) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := c.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}
