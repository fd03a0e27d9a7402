package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-sync-service/internal/datasource"
	"github.com/spec-kit/user-sync-service/internal/domain"
	"github.com/spec-kit/user-sync-service/pkg/util"
)

const principalKey = "auth.principal"

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	User *domain.User
	Role domain.Role
}

// Middleware authenticates requests with a bearer token and loads the
// matching user through the data source facade.
type Middleware struct {
	tokens *TokenManager
	data   datasource.DataSource
}

func NewMiddleware(tokens *TokenManager, data datasource.DataSource) *Middleware {
	return &Middleware{tokens: tokens, data: data}
}

// Authenticate rejects requests without a valid bearer token and stores
// the resolved principal in the request locals.
func (m *Middleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return util.NewUnauthorized("missing bearer token")
		}

		claims, err := m.tokens.Verify(token)
		if err != nil {
			return util.NewUnauthorized("invalid or expired token")
		}

		user, err := m.data.GetUserByID(c.UserContext(), claims.UserID)
		if err != nil || user == nil || !user.IsActive {
			return util.NewUnauthorized("account not found or inactive")
		}

		c.Locals(principalKey, Principal{User: user, Role: user.Role})
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalKey).(Principal)
	return p, ok
}

// RequireRole allows the request only when the principal holds one of the
// listed roles.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return util.NewUnauthorized("authentication required")
		}
		for _, role := range roles {
			if p.Role == role {
				return c.Next()
			}
		}
		return util.NewForbidden("insufficient role")
	}
}
