package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/api/dto"
	"github.com/spec-kit/user-sync-service/internal/auth"
	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/internal/service"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

// UsersHandler serves user CRUD and search endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// ListUsers GET /api/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("activeOnly", false)
	users, err := h.service.GetUsers(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUsers(users)})
}

// GetUser GET /api/users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.service.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(user)})
}

// SearchUsers GET /api/users/search?q=term.
func (h *UsersHandler) SearchUsers(c *fiber.Ctx) error {
	users, err := h.service.SearchUsers(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUsers(users)})
}

// CreateUser POST /api/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("user required")
	}
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	dob, ok := req.ParseDateOfBirth()
	if !ok {
		return util.NewValidationError("dateOfBirth must be YYYY-MM-DD", nil)
	}

	params := service.CreateUserParams{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.PhoneNumber,
		DateOfBirth: dob,
		Role:        domain.Role(req.Role),
		Password:    req.Password,
	}
	user, err := h.service.CreateUser(c.UserContext(), principal.User.ID, params, requestContext(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromUser(user)})
}

// UpdateUser PUT /api/users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("user required")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	dob, ok := req.ParseDateOfBirth()
	if !ok {
		return util.NewValidationError("dateOfBirth must be YYYY-MM-DD", nil)
	}

	input := datasource.UpdateUserInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.PhoneNumber,
		DateOfBirth: dob,
		Email:       req.Email,
		Role:        domain.Role(req.Role),
		IsActive:    req.IsActive,
	}
	user, err := h.service.UpdateUser(c.UserContext(), principal.User.ID, c.Params("id"), input, requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromUser(user)})
}

// DeleteUser DELETE /api/users/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok || principal.User == nil {
		return util.NewUnauthorized("user required")
	}
	err := h.service.DeleteUser(c.UserContext(), principal.User.ID, c.Params("id"), requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}
