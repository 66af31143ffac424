package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// getClientIP keys per-client limits. X-Forwarded-For and X-Real-IP are only honoured
// when the peer is listed in the engine's trusted proxies (TRUSTED_PROXIES).
func getClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	// RemoteAddr might be in "ip:port" format; strip the port if present.
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}
