package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and resolves principals.
type AuthMiddleware struct {
	tokens *TokenManager
	staff  repository.StaffRepository
}

// NewAuthMiddleware constructs middleware. When staff is non-nil, staff
// tokens are checked against the roster and role and departments are taken
// from the stored record.
func NewAuthMiddleware(tokens *TokenManager, staff repository.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	principal, err := claims.Principal()
	if err != nil {
		return apperrors.NewUnauthorized(err.Error())
	}

	if principal.IsStaff() && m.staff != nil {
		member, err := m.staff.GetByID(c.UserContext(), principal.StaffUserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("staff not found")
			}
			return apperrors.MapError(err)
		}
		if !member.Active || member.HotelID != principal.HotelIDValue() {
			return apperrors.NewUnauthorized("staff not active in hotel")
		}
		principal.Role = member.Role
		principal.Departments = domain.NormalizeDepartments(member.Departments)
		if principal.Name == "" {
			principal.Name = member.Name
		}
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// streamPath is the only route that accepts ?access_token=, since
// EventSource clients cannot set headers.
const streamPath = "/realtime/stream"

// bearerToken reads the Authorization header, falling back to the query
// token on the realtime stream only.
func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if strings.HasSuffix(c.Path(), streamPath) {
			if token := c.Query("access_token"); token != "" {
				return token, nil
			}
		}
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(domain.Principal)
	return principal, ok
}
