package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passkey_auth_ms/services"
)

func newAuthTestApp(jwtService services.IJWTService) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(jwtService), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"pid": c.Locals("userPid")})
	})
	return app
}

func TestAuthMiddleware_AcceptsValidBearer(t *testing.T) {
	jwtService := services.NewJWTService([]byte("test-secret"), "passkey-auth-test", time.Minute, time.Hour)
	token, err := jwtService.GenerateToken("alice-pid", time.Minute)
	require.NoError(t, err)

	app := newAuthTestApp(jwtService)
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	jwtService := services.NewJWTService([]byte("test-secret"), "passkey-auth-test", time.Minute, time.Hour)
	forged, err := services.NewJWTService([]byte("other-secret"), "passkey-auth-test", time.Minute, time.Hour).
		GenerateToken("alice-pid", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + forged},
	}

	app := newAuthTestApp(jwtService)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
