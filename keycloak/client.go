package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gostarter/keycloak-webapp/config"
	"go.uber.org/zap"
)

var (
	// ErrTokenExchange is returned when the authorization code exchange fails
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrUserInfo is returned when the userinfo request is rejected
	ErrUserInfo = errors.New("userinfo request rejected")
)

// TokenResponse represents the OAuth2 token endpoint response from Keycloak
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserInfo represents the OIDC userinfo response
type UserInfo struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

// Client talks to the Keycloak OIDC and admin endpoints
type Client struct {
	cfg        config.KeycloakConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Keycloak client
func NewClient(cfg config.KeycloakConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURI()},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("token exchange rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", ErrTokenExchange, resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token in response", ErrTokenExchange)
	}

	return &tokenResp, nil
}

// GetUserInfo fetches the user profile from the userinfo endpoint.
// Doubles as a server-side validity check for the access token.
func (c *Client) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("userinfo rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parse userinfo response: %w", err)
	}

	return &info, nil
}

// roleMappings is the shape of the admin role-mappings response
type roleMappings struct {
	ClientMappings map[string]struct {
		Mappings []struct {
			Name string `json:"name"`
		} `json:"mappings"`
	} `json:"clientMappings"`
}

// HasRealmAdminRole reports whether the user holds the realm-admin client
// role, queried through the admin role-mappings endpoint. The access token
// must belong to a user allowed to read role mappings.
func (c *Client) HasRealmAdminRole(ctx context.Context, accessToken, userID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.RoleMappingsURL(userID), nil)
	if err != nil {
		return false, fmt.Errorf("create role-mappings request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("role-mappings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("role-mappings rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("user_id", userID))
		return false, nil
	}

	var mappings roleMappings
	if err := json.NewDecoder(resp.Body).Decode(&mappings); err != nil {
		return false, fmt.Errorf("parse role-mappings response: %w", err)
	}

	for _, client := range mappings.ClientMappings {
		for _, role := range client.Mappings {
			if role.Name == "realm-admin" {
				return true, nil
			}
		}
	}
	return false, nil
}
