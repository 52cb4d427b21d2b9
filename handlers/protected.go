package handlers

import (
	"net/http"

	"github.com/gostarter/keycloak-webapp/app"
	"github.com/gostarter/keycloak-webapp/middleware"
	"github.com/gostarter/keycloak-webapp/utils"
)

// IndexHandler redirects unauthenticated visitors to the Keycloak login page
func IndexHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
	}
}

// ProtectedHandler is a worked example of a protected page: it echoes the
// identity claims the auth middleware put in the request context.
func ProtectedHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.GetClaimsFromContext(r.Context())
		if claims == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		_ = utils.WriteOK(w, map[string]interface{}{
			"sub":                claims.Sub,
			"email":              claims.Email,
			"email_verified":     claims.EmailVerified,
			"name":               claims.Name,
			"preferred_username": claims.PreferredUsername,
			"given_name":         claims.GivenName,
			"family_name":        claims.FamilyName,
			"realm_roles":        claims.RealmRoles,
		})
	}
}
