package keycloak

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// RealmAccess holds the realm-level roles granted to the token subject
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// Claims represents the claims Keycloak puts in its access and ID tokens
type Claims struct {
	jwt.RegisteredClaims
	Typ               string      `json:"typ"`
	Azp               string      `json:"azp"` // authorized party: the client the token was issued to
	Email             string      `json:"email"`
	EmailVerified     bool        `json:"email_verified"`
	Name              string      `json:"name"`
	PreferredUsername string      `json:"preferred_username"`
	GivenName         string      `json:"given_name"`
	FamilyName        string      `json:"family_name"`
	RealmAccess       RealmAccess `json:"realm_access"`
}

// ParsedClaims represents parsed and validated claims
type ParsedClaims struct {
	Sub               uuid.UUID
	Email             string
	EmailVerified     bool
	Name              string
	PreferredUsername string
	GivenName         string
	FamilyName        string
	RealmRoles        []string
	IssuedAt          time.Time
	ExpiresAt         time.Time
}

// HasRealmRole reports whether the token carries the given realm role
func (p *ParsedClaims) HasRealmRole(role string) bool {
	for _, r := range p.RealmRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ExtractClaims parses a token WITHOUT validating its signature and returns
// the parsed claims. Only use on tokens that have already been validated.
func ExtractClaims(tokenString string) (*ParsedClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return parseClaims(claims)
}

// parseClaims converts Claims to ParsedClaims with proper type conversions
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid sub UUID: %w", err)
	}

	parsed := &ParsedClaims{
		Sub:               sub,
		Email:             claims.Email,
		EmailVerified:     claims.EmailVerified,
		Name:              claims.Name,
		PreferredUsername: claims.PreferredUsername,
		GivenName:         claims.GivenName,
		FamilyName:        claims.FamilyName,
		RealmRoles:        claims.RealmAccess.Roles,
	}

	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed, nil
}
