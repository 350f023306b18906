package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID, X-Project-Key, X-Auth-State, If-Match"
	exposeHeaders = "ETag, X-Request-ID"
	allowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

// New returns a CORS middleware for the portal SPAs. Each project subdomain is its own origin,
// so entries may use a leading wildcard label ("https://*.portal.example.org").
func New(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	exact := make(map[string]struct{}, len(allowedOrigins))
	var suffixes []string
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(origin, "/")
		if scheme, rest, ok := strings.Cut(origin, "://*."); ok {
			suffixes = append(suffixes, scheme+"://|."+rest)
			continue
		}
		exact[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll || allowed(exact, suffixes, origin) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
		} else if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		h := c.Writer.Header()
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Expose-Headers", exposeHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func allowed(exact map[string]struct{}, suffixes []string, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	if _, ok := exact[origin]; ok {
		return true
	}
	for _, entry := range suffixes {
		scheme, domain, _ := strings.Cut(entry, "|")
		if strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, domain) {
			return true
		}
	}
	return false
}
