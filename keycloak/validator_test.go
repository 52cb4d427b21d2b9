package keycloak

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gostarter/keycloak-webapp/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func encodePublicKey(t *testing.T, key *rsa.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(der)
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func testKeycloakConfig(publicKey string) config.KeycloakConfig {
	return config.KeycloakConfig{
		BaseURL:     "http://keycloak:8080",
		ExternalURL: "http://localhost:8081",
		Realm:       "webapp",
		ClientID:    "webapp-client",
		PublicKey:   publicKey,
	}
}

func testClaims(cfg config.KeycloakConfig, sub uuid.UUID) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.String(),
			Issuer:    cfg.Issuer(),
			Audience:  jwt.ClaimStrings{"account"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
		Typ:               "Bearer",
		Azp:               cfg.ClientID,
		Email:             "alice@example.com",
		EmailVerified:     true,
		Name:              "Alice Smith",
		PreferredUsername: "alice",
		GivenName:         "Alice",
		FamilyName:        "Smith",
		RealmAccess:       RealmAccess{Roles: []string{"offline_access", "realm-admin"}},
	}
}

func TestValidateToken(t *testing.T) {
	key := generateTestKey(t)
	cfg := testKeycloakConfig(encodePublicKey(t, &key.PublicKey))
	sub := uuid.New()

	t.Run("valid token accepted", func(t *testing.T) {
		v := NewValidator(cfg)
		token := signToken(t, key, testClaims(cfg, sub))

		parsed, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)

		assert.Equal(t, sub, parsed.Sub)
		assert.Equal(t, "alice@example.com", parsed.Email)
		assert.Equal(t, "alice", parsed.PreferredUsername)
		assert.True(t, parsed.HasRealmRole("realm-admin"))
		assert.False(t, parsed.HasRealmRole("missing-role"))
	})

	t.Run("audience match without azp accepted", func(t *testing.T) {
		v := NewValidator(cfg)
		claims := testClaims(cfg, sub)
		claims.Audience = jwt.ClaimStrings{"account", cfg.ClientID}
		claims.Azp = ""
		token := signToken(t, key, claims)

		_, err := v.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		v := NewValidator(cfg)
		claims := testClaims(cfg, sub)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		token := signToken(t, key, claims)

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("token signed with untrusted key rejected", func(t *testing.T) {
		v := NewValidator(cfg)
		otherKey := generateTestKey(t)
		token := signToken(t, otherKey, testClaims(cfg, sub))

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience rejected", func(t *testing.T) {
		v := NewValidator(cfg)
		claims := testClaims(cfg, sub)
		claims.Audience = jwt.ClaimStrings{"account"}
		claims.Azp = "some-other-client"
		token := signToken(t, key, claims)

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidAudience)
	})

	t.Run("wrong issuer rejected", func(t *testing.T) {
		v := NewValidator(cfg)
		claims := testClaims(cfg, sub)
		claims.Issuer = "http://evil.example.com/realms/webapp"
		token := signToken(t, key, claims)

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidIssuer)
	})

	t.Run("non RSA signing method rejected", func(t *testing.T) {
		v := NewValidator(cfg)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, testClaims(cfg, sub))
		signed, err := token.SignedString([]byte("shared-secret"))
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing sub rejected", func(t *testing.T) {
		v := NewValidator(cfg)
		claims := testClaims(cfg, sub)
		claims.Subject = ""
		token := signToken(t, key, claims)

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrMissingClaim)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		v := NewValidator(cfg)

		_, err := v.ValidateToken(context.Background(), "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateTokenWithFetchedKey(t *testing.T) {
	key := generateTestKey(t)
	sub := uuid.New()

	t.Run("key fetched from realm document and cached", func(t *testing.T) {
		var fetches int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fetches++
			assert.Equal(t, "/realms/webapp", r.URL.Path)
			fmt.Fprintf(w, `{"realm":"webapp","public_key":"%s"}`, encodePublicKey(t, &key.PublicKey))
		}))
		defer server.Close()

		cfg := testKeycloakConfig("")
		cfg.BaseURL = server.URL
		v := NewValidator(cfg)
		token := signToken(t, key, testClaims(cfg, sub))

		_, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		_, err = v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, 1, fetches)

		v.InvalidateCache()
		_, err = v.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, 2, fetches)
	})

	t.Run("realm endpoint failure rejects token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cfg := testKeycloakConfig("")
		cfg.BaseURL = server.URL
		v := NewValidator(cfg)
		token := signToken(t, key, testClaims(cfg, sub))

		_, err := v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("realm document without public key rejects token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"realm":"webapp"}`)
		}))
		defer server.Close()

		cfg := testKeycloakConfig("")
		cfg.BaseURL = server.URL
		v := NewValidator(cfg)
		token := signToken(t, key, testClaims(cfg, sub))

		_, err := v.ValidateToken(context.Background(), token)
		assert.Error(t, err)
	})
}

func TestParseRealmPublicKey(t *testing.T) {
	t.Run("valid base64 DER key", func(t *testing.T) {
		key := generateTestKey(t)
		parsed, err := parseRealmPublicKey(encodePublicKey(t, &key.PublicKey))
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, parsed.N)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := parseRealmPublicKey("not base64!!!")
		assert.Error(t, err)
	})

	t.Run("valid base64 but not a key", func(t *testing.T) {
		_, err := parseRealmPublicKey(base64.StdEncoding.EncodeToString([]byte("junk")))
		assert.Error(t, err)
	})
}
