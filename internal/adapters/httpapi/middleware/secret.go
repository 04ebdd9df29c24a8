package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// DispatchSecretMiddleware guards the time-trigger endpoint with a shared
// bearer secret. Outside release mode an unset secret leaves the endpoint
// open for local development.
func DispatchSecretMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := os.Getenv("DISPATCH_SECRET")
		if secret == "" && os.Getenv("GIN_MODE") != "release" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		got := strings.TrimPrefix(header, "Bearer ")
		if header == got || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid dispatch secret"})
			return
		}

		c.Next()
	}
}
