package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// KeycloakConfig holds Keycloak identity-provider configuration.
// Loaded from .env.keycloak (or the process environment).
//
// BaseURL is the URL the application uses to reach Keycloak (inside the
// compose network), ExternalURL is the one the user's browser is sent to.
type KeycloakConfig struct {
	BaseURL      string // e.g. http://keycloak:8080
	ExternalURL  string // e.g. http://localhost:8081
	Realm        string
	ClientID     string
	ClientSecret string
	PublicKey    string // realm RSA public key, base64 DER without PEM headers; optional
	AppBaseURL   string // public base URL of this application, used for redirect URIs
	PostLoginURL string // where the browser lands after a successful login
	HTTPTimeout  time.Duration
	KeyCacheTTL  time.Duration
}

// loadKeycloakConfig loads Keycloak config from KEYCLOAK_* env vars
func loadKeycloakConfig() KeycloakConfig {
	return KeycloakConfig{
		BaseURL:      strings.TrimSuffix(getEnv("KEYCLOAK_BASE_URL", "http://keycloak:8080"), "/"),
		ExternalURL:  strings.TrimSuffix(getEnv("KEYCLOAK_EXTERNAL_URL", "http://localhost:8081"), "/"),
		Realm:        getEnv("KEYCLOAK_REALM", ""),
		ClientID:     getEnv("KEYCLOAK_CLIENT_ID", ""),
		ClientSecret: getEnv("KEYCLOAK_CLIENT_SECRET", ""),
		PublicKey:    getEnv("KEYCLOAK_PUBLIC_KEY", ""),
		AppBaseURL:   strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		PostLoginURL: getEnv("POST_LOGIN_URL", "/protected"),
		HTTPTimeout:  getEnvAsDuration("KEYCLOAK_HTTP_TIMEOUT", 10*time.Second),
		KeyCacheTTL:  getEnvAsDuration("KEYCLOAK_KEY_CACHE_TTL", time.Hour),
	}
}

// Validate checks that the fields required for token validation and the
// OAuth2 flow are present.
func (c *KeycloakConfig) Validate() error {
	if c.Realm == "" {
		return fmt.Errorf("keycloak realm is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("keycloak client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("keycloak client secret is required")
	}
	return nil
}

// Issuer returns the expected token issuer for the configured realm.
// Keycloak issues tokens with the externally visible realm URL.
func (c *KeycloakConfig) Issuer() string {
	return fmt.Sprintf("%s/realms/%s", c.ExternalURL, c.Realm)
}

// RealmURL returns the realm document endpoint, which exposes the realm
// public key.
func (c *KeycloakConfig) RealmURL() string {
	return fmt.Sprintf("%s/realms/%s", c.BaseURL, c.Realm)
}

// TokenURL returns the OAuth2 token endpoint
func (c *KeycloakConfig) TokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.BaseURL, c.Realm)
}

// AuthURL returns the authorization endpoint as seen by the browser
func (c *KeycloakConfig) AuthURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/auth", c.ExternalURL, c.Realm)
}

// LogoutURL returns the end-session endpoint as seen by the browser
func (c *KeycloakConfig) LogoutURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/logout", c.ExternalURL, c.Realm)
}

// UserInfoURL returns the OIDC userinfo endpoint
func (c *KeycloakConfig) UserInfoURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/userinfo", c.BaseURL, c.Realm)
}

// RoleMappingsURL returns the admin endpoint listing role mappings for a user
func (c *KeycloakConfig) RoleMappingsURL(userID string) string {
	return fmt.Sprintf("%s/admin/realms/%s/users/%s/role-mappings", c.BaseURL, c.Realm, userID)
}

// RedirectURI returns the callback URI registered with the Keycloak client
func (c *KeycloakConfig) RedirectURI() string {
	return c.AppBaseURL + "/auth/callback"
}

// LoginURL returns the full hosted-login URL the browser is redirected to,
// with the given CSRF state parameter.
func (c *KeycloakConfig) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {c.ClientID},
		"response_type": {"code"},
		"scope":         {"openid"},
		"redirect_uri":  {c.RedirectURI()},
	}
	if state != "" {
		params.Set("state", state)
	}
	return c.AuthURL() + "?" + params.Encode()
}
