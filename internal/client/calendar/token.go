package calendar

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenGrant is the outcome of one refresh-grant exchange. RefreshToken is
// always populated: the provider may rotate it, otherwise the prior value
// carries over.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenClient exchanges refresh tokens for access tokens against the
// provider's token endpoint.
type TokenClient struct {
	TokenURL   string
	HTTPClient *http.Client
}

func NewTokenClient(httpClient *http.Client, tokenURL string) *TokenClient {
	return &TokenClient{
		TokenURL:   tokenURL,
		HTTPClient: httpClient,
	}
}

func (c *TokenClient) Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (TokenGrant, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: c.TokenURL,
		},
	}
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}

	// A token carrying only the refresh token forces an immediate
	// refresh-grant round trip.
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenGrant{}, err
	}

	grant := TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.UTC(),
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	return grant, nil
}
