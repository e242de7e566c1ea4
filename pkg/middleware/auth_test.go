package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/models"
	"taskboard-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		JWTSecret:   testSecret,
		RootOrgID:   1,
	}
}

func tokenFor(t *testing.T, role models.Role, orgID int64) string {
	t.Helper()
	jwtService := utils.NewJWTService(testSecret)
	access, _, _, err := jwtService.GenerateTokenPair(&models.User{
		ID:             42,
		Email:          "someone@test.com",
		Role:           role,
		OrganizationID: orgID,
	})
	require.NoError(t, err)
	return access
}

// echoPrincipal 终端handler：断言context里有Principal并返回200
func echoPrincipal(t *testing.T, want models.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := RequirePrincipal(r.Context())
		require.NoError(t, err)
		assert.Equal(t, want, principal)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()

	t.Run("valid token populates principal", func(t *testing.T) {
		want := models.Principal{UserID: 42, Role: models.RoleAdmin, OrganizationID: 2}
		handler := AuthMiddleware(cfg)(echoPrincipal(t, want))

		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RoleAdmin, 2))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		handler := AuthMiddleware(cfg)(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		handler := AuthMiddleware(cfg)(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token rejected on api endpoints", func(t *testing.T) {
		jwtService := utils.NewJWTService(testSecret)
		_, refresh, _, err := jwtService.GenerateTokenPair(&models.User{
			ID: 42, Email: "someone@test.com", Role: models.RoleAdmin, OrganizationID: 2,
		})
		require.NoError(t, err)

		handler := AuthMiddleware(cfg)(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+refresh)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		handler := AuthMiddleware(cfg)(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	cfg := testConfig()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	gate := func(roles ...models.Role) http.Handler {
		return AuthMiddleware(cfg)(RequireRoles(roles...)(ok))
	}

	t.Run("allowed role passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RoleOwner, 2))
		rec := httptest.NewRecorder()
		gate(models.RoleOwner, models.RoleAdmin).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("viewer blocked from mutation endpoints", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, models.RoleViewer, 2))
		rec := httptest.NewRecorder()
		gate(models.RoleOwner, models.RoleAdmin).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated request gets 401 not 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
		rec := httptest.NewRecorder()
		gate(models.RoleOwner, models.RoleAdmin).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
