package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS answers preflights and sets the allow headers. origins is the
// comma-separated CORS_ORIGINS value; "*" or empty allows any origin.
func CORS(origins string) gin.HandlerFunc {
	allowed := make(map[string]bool)
	anyOrigin := strings.TrimSpace(origins) == "" || strings.TrimSpace(origins) == "*"
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case anyOrigin:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
