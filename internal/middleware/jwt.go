package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// Headers honoured in dev-bypass mode.
const (
	DevRoleHeader = "X-Role"
	DevUserHeader = "X-User"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid bearer token issued by the auth service.
func JWT(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// DevBypass trusts the X-Role and X-User headers and falls back to
// defaultRole. It must never be mounted in production.
func DevBypass(defaultRole models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.UserRole(strings.ToUpper(strings.TrimSpace(c.GetHeader(DevRoleHeader))))
		if role == "" {
			role = defaultRole
		}
		if role != models.RoleDirector && role != models.RoleSecretary {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "unknown role"))
			c.Abort()
			return
		}
		user := strings.TrimSpace(c.GetHeader(DevUserHeader))
		if user == "" {
			user = "dev-" + strings.ToLower(string(role))
		}

		c.Set(ContextUserKey, &models.JWTClaims{UserID: user, Name: user, Role: role})
		c.Next()
	}
}
