package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/gostarter/keycloak-webapp/keycloak"
)

// User represents a user provisioned from Keycloak on first login.
// The ID is the Keycloak subject identifier; the profile fields mirror
// the standard OIDC profile claims.
type User struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Email             string    `json:"email" db:"email"`
	EmailVerified     bool      `json:"email_verified" db:"email_verified"`
	Name              string    `json:"name" db:"name"`
	PreferredUsername string    `json:"preferred_username" db:"preferred_username"`
	GivenName         string    `json:"given_name" db:"given_name"`
	FamilyName        string    `json:"family_name" db:"family_name"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUserFromClaims creates a User from validated identity claims
func NewUserFromClaims(claims *keycloak.ParsedClaims) *User {
	now := time.Now()
	return &User{
		ID:                claims.Sub,
		Email:             claims.Email,
		EmailVerified:     claims.EmailVerified,
		Name:              claims.Name,
		PreferredUsername: claims.PreferredUsername,
		GivenName:         claims.GivenName,
		FamilyName:        claims.FamilyName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
