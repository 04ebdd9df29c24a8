package oauth

import "context"

// TokenPair is the outcome of a refresh-token exchange. RefreshToken is
// empty when the platform did not rotate it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// OAuthClient performs the refresh-token grant against a platform's token
// endpoint.
type OAuthClient interface {
	RefreshToken(ctx context.Context, platform, refreshToken string) (*TokenPair, error)
}
