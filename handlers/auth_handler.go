package handlers

import (
	"net/http"

	"github.com/gostarter/keycloak-webapp/app"
	"github.com/gostarter/keycloak-webapp/utils"
)

// AuthLoginHandler starts the OAuth2 authorization-code flow
func AuthLoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := deps.AuthHandler()
		if h == nil {
			_ = utils.WriteInternalServerError(w, "Authentication not configured")
			return
		}
		h.HandleLogin(w, r)
	}
}

// AuthCallbackHandler completes the OAuth2 authorization-code flow
func AuthCallbackHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := deps.AuthHandler()
		if h == nil {
			_ = utils.WriteInternalServerError(w, "Authentication not configured")
			return
		}
		h.HandleCallback(w, r)
	}
}

// AuthLogoutHandler clears the session and redirects to the provider logout
func AuthLogoutHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := deps.AuthHandler()
		if h == nil {
			_ = utils.WriteInternalServerError(w, "Authentication not configured")
			return
		}
		h.HandleLogout(w, r)
	}
}
