package middleware

import "github.com/gin-gonic/gin"

// Security sets common HTTP security headers on every response.
// Geolocation stays allowed for the map page's "near me" lookup. HSTS is only sent
// when hsts is set, so plain-http local runs are not pinned to https.
func Security(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=(self)")
		if hsts {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}
