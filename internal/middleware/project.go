package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/sevaportal/portal-api/pkg/errors"
	"github.com/sevaportal/portal-api/pkg/response"
)

const (
	// ContextProjectKey stores the project resolved for the request.
	ContextProjectKey = "projectKey"
	projectHeader     = "X-Project-Key"
)

// Project resolves which project the request targets: the projectKey query parameter, then
// the X-Project-Key header, then the subdomain label of baseDomain in the Host. Authenticated
// non-admin callers are refused projects their token does not list.
func Project(baseDomain string) gin.HandlerFunc {
	baseDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(baseDomain), "."))
	return func(c *gin.Context) {
		key := resolveProjectKey(c, baseDomain)
		if key != "" {
			if claims, ok := Claims(c); ok && !claims.Info().CanAccessProject(key) {
				response.Error(c, appErrors.WithDetails(
					appErrors.Clone(appErrors.ErrForbidden, "no access to project"),
					map[string]any{"projectKey": key}))
				c.Abort()
				return
			}
			c.Set(ContextProjectKey, key)
		}
		c.Next()
	}
}

// ProjectKey returns the project resolved by Project, or "".
func ProjectKey(c *gin.Context) string {
	return c.GetString(ContextProjectKey)
}

func resolveProjectKey(c *gin.Context, baseDomain string) string {
	if key := strings.TrimSpace(c.Query("projectKey")); key != "" {
		return key
	}
	if key := strings.TrimSpace(c.GetHeader(projectHeader)); key != "" {
		return key
	}
	return subdomainProject(c.Request.Host, baseDomain)
}

// subdomainProject returns "alpha" for Host "alpha.portal.example.org" when baseDomain is
// "portal.example.org". Nested labels and the bare base domain yield "".
func subdomainProject(host, baseDomain string) string {
	if baseDomain == "" || host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	label, ok := strings.CutSuffix(host, "."+baseDomain)
	if !ok || label == "" || strings.Contains(label, ".") || label == "www" {
		return ""
	}
	return label
}
