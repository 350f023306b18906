package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sevaportal/portal-api/internal/middleware"
	"github.com/sevaportal/portal-api/internal/models"
	appErrors "github.com/sevaportal/portal-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// currentUser returns the authenticated caller.
func currentUser(c *gin.Context) (models.UserInfo, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.UserInfo{}, appErrors.ErrUnauthorized
	}
	return claims.Info(), nil
}

// projectFor falls back to the project resolved by middleware.Project and checks that the
// caller may act on it.
func projectFor(c *gin.Context, requested string) (string, error) {
	key := requested
	if key == "" {
		key = middleware.ProjectKey(c)
	}
	if key == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "projectKey is required")
	}
	if claims := claimsFromContext(c); claims != nil && !claims.Info().CanAccessProject(key) {
		return "", appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrForbidden, "no access to project"),
			map[string]any{"projectKey": key})
	}
	return key, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
