package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// RequireStaff ensures a hotel staff member or platform admin is authenticated.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.IsStaff() && !principal.IsPlatformAdmin() {
			return apperrors.NewForbidden("staff access required")
		}
		return c.Next()
	}
}

// RequireAnyPrincipal ensures the caller is authenticated.
func RequireAnyPrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
