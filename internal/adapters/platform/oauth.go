package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"crosspost/internal/config"
	oauthPort "crosspost/internal/ports/oauth"
)

// OAuthHTTPClient performs the refresh-token grant against the per-platform
// token endpoints from the catalog.
type OAuthHTTPClient struct {
	client  *http.Client
	catalog config.PlatformsConfig
}

func NewOAuthHTTPClient(client *http.Client, catalog config.PlatformsConfig) *OAuthHTTPClient {
	return &OAuthHTTPClient{client: client, catalog: catalog}
}

func (c *OAuthHTTPClient) RefreshToken(ctx context.Context, platform, refreshToken string) (*oauthPort.TokenPair, error) {
	cfg := c.catalog.Find(platform)
	if cfg == nil || cfg.TokenURL == "" {
		return nil, fmt.Errorf("no token endpoint configured for %s", platform)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if cfg.ClientID != "" {
		form.Set("client_id", cfg.ClientID)
	}
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, raw)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("could not decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access_token")
	}

	return &oauthPort.TokenPair{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresIn:    body.ExpiresIn,
	}, nil
}
