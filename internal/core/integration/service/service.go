package integrationapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	integrationEntity "crosspost/internal/core/integration"
	integrationPort "crosspost/internal/ports/integration"
	oauthPort "crosspost/internal/ports/oauth"

	"go.uber.org/zap"
)

// ErrNoRefreshToken means the access token is expired and there is nothing
// to exchange; the attempt is over.
var ErrNoRefreshToken = errors.New("access token expired and no refresh token stored")

// TokenService keeps stored OAuth tokens usable: it hands back the stored
// token while it is valid and performs at most one refresh exchange per
// publish attempt when it is not. Refresh is never proactive.
type TokenService struct {
	IntegrationRepository integrationPort.IntegrationRepository
	OAuthClient           oauthPort.OAuthClient
	Logger                *zap.Logger
	Now                   func() time.Time
}

func NewTokenService(
	repo integrationPort.IntegrationRepository,
	oauthClient oauthPort.OAuthClient,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		IntegrationRepository: repo,
		OAuthClient:           oauthClient,
		Logger:                logger,
		Now:                   time.Now,
	}
}

// EnsureValidToken returns an access token that is safe to hand to an
// adapter. New tokens are persisted before being returned, so a crash after
// the exchange never loses the rotation.
func (s *TokenService) EnsureValidToken(ctx context.Context, in *integrationEntity.Integration) (string, error) {
	now := s.Now()

	if !in.TokenExpired(now) {
		return in.AccessToken, nil
	}

	if in.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	s.Logger.Info("➡ Refreshing expired token",
		zap.String("integrationID", in.ID.String()),
		zap.String("platform", in.Platform))

	pair, err := s.OAuthClient.RefreshToken(ctx, in.Platform, in.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh exchange failed: %w", err)
	}

	refreshToken := in.RefreshToken
	if pair.RefreshToken != "" {
		refreshToken = pair.RefreshToken
	}
	expiry := now.Add(time.Duration(pair.ExpiresIn) * time.Second)

	if err := s.IntegrationRepository.UpdateTokens(ctx, in.ID, pair.AccessToken, refreshToken, expiry); err != nil {
		return "", fmt.Errorf("could not persist refreshed token: %w", err)
	}

	in.AccessToken = pair.AccessToken
	in.RefreshToken = refreshToken
	in.TokenExpiry = &expiry

	s.Logger.Info("✅ Token refreshed",
		zap.String("integrationID", in.ID.String()),
		zap.Time("expiry", expiry))

	return pair.AccessToken, nil
}
