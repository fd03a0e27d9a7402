package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/api/dto"
	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/service"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// AuthHandler serves authentication endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return util.NewValidationError("email and password required", nil)
	}

	result, err := h.service.Login(c.UserContext(), req.Email, req.Password, requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.FromUser(result.User),
	}})
}

// ChangePassword POST /api/users/:id/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("user required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return util.NewValidationError("currentPassword and newPassword required", nil)
	}

	err := h.service.ChangePassword(c.UserContext(), principal.User.ID, c.Params("id"),
		req.CurrentPassword, req.NewPassword, requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}
