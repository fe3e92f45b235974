package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/vetverify/app/services"
	"github.com/amirphl/vetverify/models"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokenService struct {
	tokens map[string]*services.TokenClaims
	errs   map[string]error
}

func (s *stubTokenService) ValidateToken(_ context.Context, token string) (*services.TokenClaims, error) {
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if claims, ok := s.tokens[token]; ok {
		return claims, nil
	}
	return nil, services.ErrTokenInvalid
}

func (s *stubTokenService) RevokeToken(context.Context, *services.TokenClaims) error { return nil }

func (s *stubTokenService) IsTokenRevoked(context.Context, string) bool { return false }

func newAuthApp(t *testing.T) (*fiber.App, uuid.UUID, uuid.UUID) {
	t.Helper()
	vetID, adminID := uuid.New(), uuid.New()
	svc := &stubTokenService{
		tokens: map[string]*services.TokenClaims{
			"vet-token":   {AccountUUID: vetID, Role: models.RoleVeterinarian, TokenID: "t1"},
			"admin-token": {AccountUUID: adminID, Role: models.RoleAdmin, TokenID: "t2"},
		},
		errs: map[string]error{
			"expired": services.ErrTokenExpired,
			"revoked": services.ErrTokenRevoked,
			"broken":  errors.New("redis down"),
		},
	}
	auth := NewAuthMiddleware(svc)

	app := fiber.New()
	whoami := func(c fiber.Ctx) error {
		id, _ := GetAccountUUIDFromContext(c)
		role, _ := GetRoleFromContext(c)
		return c.JSON(fiber.Map{"account_uuid": id.String(), "role": role})
	}
	app.Get("/me", auth.Authenticate(), whoami)
	app.Get("/notifications/stream", auth.Authenticate(), whoami)
	app.Get("/admin", auth.Authenticate(), auth.RequireAdmin(), whoami)
	return app, vetID, adminID
}

func call(t *testing.T, app *fiber.App, target, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestAuthenticate(t *testing.T) {
	app, vetID, _ := newAuthApp(t)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"MissingHeader", "", "MISSING_AUTHORIZATION_HEADER"},
		{"WrongScheme", "Basic abc", "INVALID_AUTHORIZATION_FORMAT"},
		{"Expired", "Bearer expired", "TOKEN_EXPIRED"},
		{"Revoked", "Bearer revoked", "TOKEN_REVOKED"},
		{"Unknown", "Bearer nope", "TOKEN_INVALID"},
		{"ValidationFailure", "Bearer broken", "TOKEN_VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, "/me", tt.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}

	t.Run("Valid", func(t *testing.T) {
		status, body := call(t, app, "/me", "Bearer vet-token")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, vetID.String(), body["account_uuid"])
		assert.Equal(t, "veterinarian", body["role"])
	})
}

func TestQueryTokenOnlyForStream(t *testing.T) {
	app, vetID, _ := newAuthApp(t)

	status, body := call(t, app, "/me?access_token=vet-token", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", errorCode(body))

	status, body = call(t, app, "/notifications/stream?access_token=vet-token", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, vetID.String(), body["account_uuid"])
}

func TestRequireAdmin(t *testing.T) {
	app, _, adminID := newAuthApp(t)

	status, body := call(t, app, "/admin", "Bearer vet-token")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ADMIN_REQUIRED", errorCode(body))

	status, body = call(t, app, "/admin", "Bearer admin-token")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, adminID.String(), body["account_uuid"])
}
