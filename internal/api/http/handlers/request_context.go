package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/security"
)

// requestContext extracts the caller attributes used by security checks
// and audit records. Forwarding headers win over the socket address so
// audit entries survive a reverse proxy.
func requestContext(c *fiber.Ctx) security.RequestContext {
	ip := c.Get("X-Forwarded-For")
	if ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	}
	if ip == "" {
		ip = c.Get("X-Real-IP")
	}
	if ip == "" {
		ip = c.IP()
	}

	return security.RequestContext{
		IPAddress: ip,
		UserAgent: c.Get(fiber.HeaderUserAgent),
		SessionID: c.Get("X-Session-Id"),
	}
}
