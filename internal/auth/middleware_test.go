package auth

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

func newAuthApp(tokens *TokenManager, staff repository.StaffRepository) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})
	v1 := app.Group("/v1", NewAuthMiddleware(tokens, staff).Handle)
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	v1.Get("/tickets", ok)
	v1.Get("/realtime/stream", ok)
	return app
}

func status(t *testing.T, app *fiber.App, path, header string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestQueryTokenOnlyAcceptedOnRealtimeStream(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	token, _, err := tokens.GenerateToken(domain.GuestPrincipal("guest-1", "hotel-1", "stay-1"))
	require.NoError(t, err)
	app := newAuthApp(tokens, nil)

	assert.Equal(t, fiber.StatusOK, status(t, app, "/v1/realtime/stream?access_token="+token, ""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/v1/tickets?access_token="+token, ""))
	assert.Equal(t, fiber.StatusOK, status(t, app, "/v1/tickets", "Bearer "+token))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/v1/realtime/stream", ""))
}

func TestMalformedStaffSubjectIsUnauthorized(t *testing.T) {
	tokens := NewTokenManager("secret", 5)
	token, _, err := tokens.GenerateToken(domain.StaffPrincipal("not-a-uuid", "hotel-1", domain.StaffRoleAdmin))
	require.NoError(t, err)
	// The pgx repository rejects malformed ids before touching its pool.
	app := newAuthApp(tokens, repository.NewStaffRepository(nil))

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/v1/tickets", "Bearer "+token))
}
