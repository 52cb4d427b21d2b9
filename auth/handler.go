package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gostarter/keycloak-webapp/config"
	"github.com/gostarter/keycloak-webapp/keycloak"
	"github.com/gostarter/keycloak-webapp/models"
	"github.com/gostarter/keycloak-webapp/repositories"
	"github.com/gostarter/keycloak-webapp/utils"
	"go.uber.org/zap"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName = "oauth_state"
	// AccessTokenCookieName is the cookie the validated access token is stored in
	AccessTokenCookieName = "access_token"
	// IDTokenCookieName is the cookie the ID token is stored in (used as a
	// logout hint)
	IDTokenCookieName = "id_token"

	stateCookieMaxAge = 600
	tokenCookieMaxAge = 86400
)

// TokenExchanger exchanges OAuth2 authorization codes for tokens via the
// Keycloak token endpoint.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*keycloak.TokenResponse, error)
}

// TokenValidator validates JWT tokens and returns parsed claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*keycloak.ParsedClaims, error)
}

// Handler handles the OAuth2 authorization-code flow (login, callback, logout).
type Handler struct {
	cfg       *config.Config
	exchanger TokenExchanger
	validator TokenValidator
	users     repositories.UserRepository
	logger    *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(cfg *config.Config, exchanger TokenExchanger, validator TokenValidator, users repositories.UserRepository, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		exchanger: exchanger,
		validator: validator,
		users:     users,
		logger:    logger,
	}
}

// HandleLogin redirects the browser to the Keycloak login page
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Keycloak.Realm == "" || h.cfg.Keycloak.ClientID == "" {
		h.logger.Error("keycloak not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.cfg.Keycloak.LoginURL(state), http.StatusFound)
}

// HandleCallback exchanges the authorization code for tokens, validates the
// access token, provisions the user on first login, and sets the auth cookies.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("provider returned error",
			zap.String("error", errParam),
			zap.String("description", query.Get("error_description")))
		_ = utils.WriteUnauthorized(w, "Authentication failed")
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" {
		_ = utils.WriteUnauthorized(w, "Missing authorization code")
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, "Missing state parameter", nil)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}
	h.clearCookie(w, StateCookieName)

	tokens, err := h.exchanger.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Warn("token exchange failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Authentication failed")
		return
	}

	claims, err := h.validator.ValidateToken(r.Context(), tokens.AccessToken)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Invalid token")
		return
	}

	if err := h.provisionUser(r.Context(), claims); err != nil {
		h.logger.Error("failed to provision user",
			zap.String("sub", claims.Sub.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to provision user")
		return
	}

	h.setTokenCookie(w, AccessTokenCookieName, tokens.AccessToken)
	if tokens.IDToken != "" {
		h.setTokenCookie(w, IDTokenCookieName, tokens.IDToken)
	}

	h.logger.Info("user logged in",
		zap.String("sub", claims.Sub.String()),
		zap.String("username", claims.PreferredUsername))

	http.Redirect(w, r, h.cfg.Keycloak.PostLoginURL, http.StatusFound)
}

// HandleLogout clears the auth cookies and redirects to the Keycloak logout
// endpoint, passing the ID token as a hint when available.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	params := url.Values{
		"client_id":                {h.cfg.Keycloak.ClientID},
		"post_logout_redirect_uri": {h.cfg.Keycloak.AppBaseURL},
	}
	if cookie, err := r.Cookie(IDTokenCookieName); err == nil && cookie.Value != "" {
		params.Set("id_token_hint", cookie.Value)
	}

	h.clearCookie(w, AccessTokenCookieName)
	h.clearCookie(w, IDTokenCookieName)

	http.Redirect(w, r, h.cfg.Keycloak.LogoutURL()+"?"+params.Encode(), http.StatusFound)
}

// provisionUser creates a local user row on first login
func (h *Handler) provisionUser(ctx context.Context, claims *keycloak.ParsedClaims) error {
	_, err := h.users.GetByID(ctx, claims.Sub)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	h.logger.Info("provisioning user on first login",
		zap.String("sub", claims.Sub.String()),
		zap.String("email", claims.Email))
	return h.users.Create(ctx, models.NewUserFromClaims(claims))
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   tokenCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) secureCookies() bool {
	return strings.HasPrefix(h.cfg.Keycloak.AppBaseURL, "https")
}

func generateSecureState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
