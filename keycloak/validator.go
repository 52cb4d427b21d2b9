package keycloak

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gostarter/keycloak-webapp/config"
)

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience is invalid
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrKeyFetchFailed is returned when fetching the realm public key fails
	ErrKeyFetchFailed = errors.New("failed to fetch realm public key")
)

// realmRepresentation is the subset of the realm document we care about
type realmRepresentation struct {
	Realm     string `json:"realm"`
	PublicKey string `json:"public_key"`
}

// Validator validates JWT tokens issued by a Keycloak realm.
//
// The RSA public key comes from KEYCLOAK_PUBLIC_KEY when configured;
// otherwise it is fetched from the realm document and cached.
type Validator struct {
	cfg        config.KeycloakConfig
	httpClient *http.Client

	cachedKey    *rsa.PublicKey
	keyCacheExp  time.Time
	keyCacheTTL  time.Duration
	keyCacheMu   sync.RWMutex
}

// NewValidator creates a new realm token validator
func NewValidator(cfg config.KeycloakConfig) *Validator {
	ttl := cfg.KeyCacheTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Validator{
		cfg:         cfg,
		keyCacheTTL: ttl,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ValidateToken validates a JWT token and returns parsed claims.
// A token is accepted only if its signature verifies against the realm
// public key, it has not expired, and its audience matches the client id.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*ParsedClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey(ctx)
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// Verify issuer. Tokens are minted with the externally visible realm URL.
	if claims.Issuer != "" && claims.Issuer != v.cfg.Issuer() {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.cfg.Issuer(), claims.Issuer)
	}

	// Verify audience. Keycloak access tokens carry the client id in azp
	// and often set aud to "account", so either is accepted.
	if !containsAudience(claims.Audience, v.cfg.ClientID) && claims.Azp != v.cfg.ClientID {
		return nil, ErrInvalidAudience
	}

	return parseClaims(claims)
}

// publicKey returns the realm RSA public key, from config when set,
// otherwise from the (cached) realm document.
func (v *Validator) publicKey(ctx context.Context) (*rsa.PublicKey, error) {
	if v.cfg.PublicKey != "" {
		return parseRealmPublicKey(v.cfg.PublicKey)
	}

	v.keyCacheMu.RLock()
	if v.cachedKey != nil && time.Now().Before(v.keyCacheExp) {
		defer v.keyCacheMu.RUnlock()
		return v.cachedKey, nil
	}
	v.keyCacheMu.RUnlock()

	key, err := v.fetchRealmKey(ctx)
	if err != nil {
		return nil, err
	}

	v.keyCacheMu.Lock()
	v.cachedKey = key
	v.keyCacheExp = time.Now().Add(v.keyCacheTTL)
	v.keyCacheMu.Unlock()

	return key, nil
}

// fetchRealmKey fetches the public key from the realm document
func (v *Validator) fetchRealmKey(ctx context.Context) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.RealmURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrKeyFetchFailed, resp.StatusCode)
	}

	var realm realmRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&realm); err != nil {
		return nil, fmt.Errorf("failed to decode realm document: %w", err)
	}

	if realm.PublicKey == "" {
		return nil, fmt.Errorf("%w: realm document has no public_key", ErrKeyFetchFailed)
	}

	return parseRealmPublicKey(realm.PublicKey)
}

// parseRealmPublicKey parses the base64 DER public key Keycloak exposes in
// its realm document (and that operators paste into KEYCLOAK_PUBLIC_KEY).
func parseRealmPublicKey(b64 string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("realm public key is not RSA")
	}

	return rsaKey, nil
}

// InvalidateCache drops the cached realm key (useful for testing or forced refresh)
func (v *Validator) InvalidateCache() {
	v.keyCacheMu.Lock()
	defer v.keyCacheMu.Unlock()
	v.cachedKey = nil
	v.keyCacheExp = time.Time{}
}

// containsAudience checks if the audience list contains the expected client ID
func containsAudience(audiences jwt.ClaimStrings, clientID string) bool {
	for _, aud := range audiences {
		if aud == clientID {
			return true
		}
	}
	return false
}
