// Package youtube reads sources from and publishes clips to the YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Credentials holds the API key used for reads and the OAuth client used for uploads.
type Credentials struct {
	APIKey       string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CanPublish reports whether the OAuth refresh-token triple is complete.
func (c Credentials) CanPublish() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// NewReadService creates a Data API client authenticated with an API key.
// Extra client options override the defaults, which tests use to point at a
// local server.
func NewReadService(ctx context.Context, apiKey string, extra ...option.ClientOption) (*yt.Service, error) {
	opts := make([]option.ClientOption, 0, len(extra)+1)
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube read service: %w", err)
	}
	return svc, nil
}

// NewUploadService creates a Data API client that authenticates uploads
// with the OAuth refresh token.
func NewUploadService(ctx context.Context, creds Credentials, extra ...option.ClientOption) (*yt.Service, error) {
	client, err := OAuthClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, extra...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube upload service: %w", err)
	}
	return svc, nil
}

// OAuthClient builds an HTTP client that refreshes its access token from
// the configured refresh token.
func OAuthClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	if !creds.CanPublish() {
		return nil, errors.New("youtube: client id, client secret and refresh token are required")
	}
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope, yt.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.Client(ctx, token), nil
}
