package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gostarter/keycloak-webapp/app"
	"github.com/gostarter/keycloak-webapp/middleware"
	"github.com/gostarter/keycloak-webapp/repositories"
	"github.com/gostarter/keycloak-webapp/utils"
	"go.uber.org/zap"
)

const defaultPageSize = 50

// listUsersQuery holds validated pagination parameters
type listUsersQuery struct {
	Limit  int `validate:"gte=1,lte=200"`
	Offset int `validate:"gte=0"`
}

// GetCurrentUserHandler returns the authenticated user's database record
func GetCurrentUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.GetClaimsFromContext(r.Context())
		if claims == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		user, err := deps.Users.GetByID(r.Context(), claims.Sub)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				_ = utils.WriteNotFound(w, "User not provisioned yet")
				return
			}
			deps.Logger.Error("failed to load current user",
				zap.String("sub", claims.Sub.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteOK(w, user)
	}
}

// GetUserHandler returns a user by ID
func GetUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
			return
		}

		user, err := deps.Users.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				_ = utils.WriteNotFound(w, "User not found")
				return
			}
			deps.Logger.Error("failed to load user",
				zap.String("id", id.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteOK(w, user)
	}
}

// ListUsersHandler lists users with limit/offset pagination
func ListUsersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := listUsersQuery{
			Limit:  queryInt(r, "limit", defaultPageSize),
			Offset: queryInt(r, "offset", 0),
		}
		if err := utils.ValidateStruct(&query); err != nil {
			details := make(map[string]interface{})
			for field, msg := range utils.GetValidationFields(err) {
				details[field] = msg
			}
			_ = utils.WriteBadRequest(w, "Invalid pagination parameters", details)
			return
		}

		users, err := deps.Users.List(r.Context(), query.Limit, query.Offset)
		if err != nil {
			deps.Logger.Error("failed to list users", zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteOK(w, users)
	}
}

// DeleteUserHandler deletes a user by ID
func DeleteUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
			return
		}

		if err := deps.Users.Delete(r.Context(), id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				_ = utils.WriteNotFound(w, "User not found")
				return
			}
			deps.Logger.Error("failed to delete user",
				zap.String("id", id.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		utils.WriteNoContent(w)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
