package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/observability"
	"github.com/spec-kit/user-sync-service/internal/security"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// SecurityHandler exposes the audit log and security metrics.
type SecurityHandler struct {
	audit   *security.AuditService
	metrics *observability.Metrics
}

// NewSecurityHandler constructs handler.
func NewSecurityHandler(audit *security.AuditService, metrics *observability.Metrics) *SecurityHandler {
	return &SecurityHandler{audit: audit, metrics: metrics}
}

// Metrics GET /api/security/metrics.
func (h *SecurityHandler) Metrics(c *fiber.Ctx) error {
	syncSuccesses, syncFailures := h.metrics.SyncCounts()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"security": h.audit.Metrics(),
		"sync": fiber.Map{
			"successes": syncSuccesses,
			"failures":  syncFailures,
		},
	}})
}

// Events GET /api/security/events?from=...&to=... with RFC 3339 bounds.
func (h *SecurityHandler) Events(c *fiber.Ctx) error {
	from, err := parseTimeQuery(c.Query("from"))
	if err != nil {
		return util.NewValidationError("from must be RFC 3339", nil)
	}
	to, err := parseTimeQuery(c.Query("to"))
	if err != nil {
		return util.NewValidationError("to must be RFC 3339", nil)
	}
	return c.JSON(fiber.Map{"data": h.audit.Events(from, to)})
}

func parseTimeQuery(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
