package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sevaportal/portal-api/internal/models"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
	"github.com/sevaportal/portal-api/pkg/response"
)

// MinRole admits callers whose role ranks at or above min. Higher roles inherit access.
func MinRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.Role.AtLeast(min) {
			response.Error(c, appErrors.WithDetails(appErrors.ErrForbidden, map[string]any{
				"requiredRole": min,
				"role":         claims.Role,
			}))
			c.Abort()
			return
		}
		c.Next()
	}
}
