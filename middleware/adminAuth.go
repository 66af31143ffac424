package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"mindease/utils"

	"github.com/gin-gonic/gin"
)

// AdminKeyMiddleware guards admin routes with a static key sent as x-admin-key or
// "Authorization: Bearer <key>". An empty key disables the admin surface.
func AdminKeyMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{Message: "Admin access is disabled"})
			return
		}

		token := c.GetHeader("x-admin-key")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
				return
			}
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Unauthorized admin access"})
			return
		}

		c.Set("isAdmin", true)
		c.Next()
	}
}
