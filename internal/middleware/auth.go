package middleware

import (
	"net/http"
	"strings"

	"backend/internal/auth"
	"backend/internal/model"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireAuth.
const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
	CtxUsername = "username"
)

// RequireAuth validates the Bearer session token and stores the requester's
// identity in the gin context. Missing, malformed and expired tokens all
// answer 401 without saying which.
func RequireAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return
		}

		claims, err := tokens.VerifySession(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		c.Set(CtxUserID, claims.SubjectID)
		c.Set(CtxUserRole, claims.Role)
		c.Set(CtxUsername, claims.Username)

		c.Next()
	}
}

// RequireRole checks the role RequireAuth put in the context against an
// allow-list. It must be chained after RequireAuth.
func RequireRole(allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(CtxUserRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		userRole, ok := value.(model.Role)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}

		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// Requester reads the authenticated identity RequireAuth stored in the
// context.
func Requester(c *gin.Context) (id uint, role model.Role, ok bool) {
	idValue, exists := c.Get(CtxUserID)
	if !exists {
		return 0, "", false
	}
	id, ok = idValue.(uint)
	if !ok {
		return 0, "", false
	}

	roleValue, exists := c.Get(CtxUserRole)
	if !exists {
		return 0, "", false
	}
	role, ok = roleValue.(model.Role)
	if !ok {
		return 0, "", false
	}
	return id, role, true
}
