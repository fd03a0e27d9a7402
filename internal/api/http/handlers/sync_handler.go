package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/api/dto"
	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/service"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// SyncHandler serves the user synchronization endpoints.
type SyncHandler struct {
	service *service.SyncService
}

// NewSyncHandler constructs handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{service: syncService}
}

// CheckExistence GET /api/sync/check/:id.
func (h *SyncHandler) CheckExistence(c *fiber.Ctx) error {
	status, err := h.service.CheckUserExistence(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromExistence(status)})
}

// ValidateSync GET /api/sync/validate/:id.
func (h *SyncHandler) ValidateSync(c *fiber.Ctx) error {
	result, err := h.service.ValidateUserForSync(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSyncValidation(result)})
}

// SyncUser POST /api/sync/users/:id.
func (h *SyncHandler) SyncUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("user required")
	}
	var req dto.SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return util.NewValidationError("invalid payload", nil)
		}
	}

	user, err := h.service.SecureSyncUser(c.UserContext(), principal.User.ID, c.Params("id"), req.Reason, requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(user)})
}

// SyncSelf POST /api/sync/self.
func (h *SyncHandler) SyncSelf(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("user required")
	}

	user, err := h.service.SyncSelf(c.UserContext(), principal.User.ID, requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(user)})
}

// AuditLog GET /api/sync/audit/:id.
func (h *SyncHandler) AuditLog(c *fiber.Ctx) error {
	entries := h.service.AuditLogFor(c.Params("id"))
	return c.JSON(fiber.Map{"data": entries})
}
