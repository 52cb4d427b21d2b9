package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gostarter/keycloak-webapp/keycloak"
	"github.com/gostarter/keycloak-webapp/middleware"
	"github.com/gostarter/keycloak-webapp/models"
	"github.com/gostarter/keycloak-webapp/repositories"
	"github.com/gostarter/keycloak-webapp/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func requestWithClaims(r *http.Request, claims *keycloak.ParsedClaims) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func requestWithURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetCurrentUserHandler(t *testing.T) {
	sub := uuid.New()
	claims := &keycloak.ParsedClaims{Sub: sub, Email: "alice@example.com"}

	t.Run("returns provisioned user", func(t *testing.T) {
		users := new(MockUserRepository)
		user := &models.User{ID: sub, Email: "alice@example.com"}
		users.On("GetByID", mock.Anything, sub).Return(user, nil)

		handler := GetCurrentUserHandler(newTestDeps(users))

		req := requestWithClaims(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), claims)
		w := httptest.NewRecorder()

		handler(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response utils.SuccessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response.Data.(map[string]interface{})
		assert.Equal(t, sub.String(), data["id"])
		assert.Equal(t, "alice@example.com", data["email"])
	})

	t.Run("user not provisioned returns 404", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("GetByID", mock.Anything, sub).Return(nil, repositories.ErrNotFound)

		handler := GetCurrentUserHandler(newTestDeps(users))

		req := requestWithClaims(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), claims)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no claims returns 401", func(t *testing.T) {
		handler := GetCurrentUserHandler(newTestDeps(new(MockUserRepository)))

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("repository error returns 500", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("GetByID", mock.Anything, sub).Return(nil, assert.AnError)

		handler := GetCurrentUserHandler(newTestDeps(users))

		req := requestWithClaims(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), claims)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetUserHandler(t *testing.T) {
	t.Run("returns user", func(t *testing.T) {
		users := new(MockUserRepository)
		id := uuid.New()
		users.On("GetByID", mock.Anything, id).Return(&models.User{ID: id}, nil)

		handler := GetUserHandler(newTestDeps(users))

		req := requestWithURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/users/"+id.String(), nil), "id", id.String())
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		handler := GetUserHandler(newTestDeps(new(MockUserRepository)))

		req := requestWithURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/users/nope", nil), "id", "nope")
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		users := new(MockUserRepository)
		id := uuid.New()
		users.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)

		handler := GetUserHandler(newTestDeps(users))

		req := requestWithURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/users/"+id.String(), nil), "id", id.String())
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListUsersHandler(t *testing.T) {
	t.Run("default pagination", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("List", mock.Anything, defaultPageSize, 0).Return([]*models.User{{ID: uuid.New()}}, nil)

		handler := ListUsersHandler(newTestDeps(users))

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("explicit pagination", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("List", mock.Anything, 10, 20).Return([]*models.User{}, nil)

		handler := ListUsersHandler(newTestDeps(users))

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/users?limit=10&offset=20", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("out of range limit returns 400", func(t *testing.T) {
		users := new(MockUserRepository)
		handler := ListUsersHandler(newTestDeps(users))

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/users?limit=5000", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "List")
	})

	t.Run("negative offset returns 400", func(t *testing.T) {
		handler := ListUsersHandler(newTestDeps(new(MockUserRepository)))

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/users?offset=-5", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("repository error returns 500", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("List", mock.Anything, defaultPageSize, 0).Return(nil, assert.AnError)

		handler := ListUsersHandler(newTestDeps(users))

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDeleteUserHandler(t *testing.T) {
	t.Run("successful delete returns 204", func(t *testing.T) {
		users := new(MockUserRepository)
		id := uuid.New()
		users.On("Delete", mock.Anything, id).Return(nil)

		handler := DeleteUserHandler(newTestDeps(users))

		req := requestWithURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+id.String(), nil), "id", id.String())
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		users := new(MockUserRepository)
		id := uuid.New()
		users.On("Delete", mock.Anything, id).Return(repositories.ErrNotFound)

		handler := DeleteUserHandler(newTestDeps(users))

		req := requestWithURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/users/"+id.String(), nil), "id", id.String())
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		handler := DeleteUserHandler(newTestDeps(new(MockUserRepository)))

		req := requestWithURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/users/xyz", nil), "id", "xyz")
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
