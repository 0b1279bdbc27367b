package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.token = token
	return s.claims, s.err
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		claims, _ := value.(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"role": claims.Role, "user": claims.UserID})
	})
	r.GET("/fees", handlers...)
	return r
}

func TestJWTRequiresBearer(t *testing.T) {
	r := newRouter(JWT(&stubValidator{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fees", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set("Authorization", "Basic abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAttachesClaims(t *testing.T) {
	stub := &stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleSecretary}}
	r := newRouter(JWT(stub), RequireRoles(models.RoleDirector, models.RoleSecretary))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token-1", stub.token)
	assert.Contains(t, w.Body.String(), `"role":"SECRETARY"`)
}

func TestJWTPropagatesValidationError(t *testing.T) {
	stub := &stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}
	r := newRouter(JWT(stub))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set("Authorization", "Bearer stale")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")
}

func TestRequireRolesForbidsSecretary(t *testing.T) {
	r := newRouter(DevBypass(models.RoleDirector), RequireRoles(models.RoleDirector))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set(DevRoleHeader, "secretary")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fees", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"dev-director"`)
}

func TestDevBypassRejectsUnknownRole(t *testing.T) {
	r := newRouter(DevBypass(models.RoleDirector))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fees", nil)
	req.Header.Set(DevRoleHeader, "PARENT")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := newRouter(RequireRoles(models.RoleDirector))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fees", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
