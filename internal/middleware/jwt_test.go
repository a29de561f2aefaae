package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/middleware"
)

const testSecret = "test-secret"

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, tokenID string) bool {
	return r[tokenID]
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

type sessionLocals struct {
	UserID  string    `json:"user_id"`
	Role    string    `json:"role"`
	TokenID string    `json:"token_id"`
	Expiry  time.Time `json:"expiry"`
}

func newJWTApp(revocations middleware.RevocationChecker) *fiber.App {
	app := fiber.New()
	app.Get("/me", middleware.JWTProtected(testSecret, revocations), func(c *fiber.Ctx) error {
		return c.JSON(sessionLocals{
			UserID:  middleware.UserID(c),
			Role:    middleware.UserRole(c),
			TokenID: middleware.TokenID(c),
			Expiry:  middleware.TokenExpiry(c),
		})
	})
	return app
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func TestJWTProtectedSetsLocals(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "google-oauth2|123",
		"role": "Admin",
		"jti":  "jti-1",
		"exp":  exp.Unix(),
	})

	resp, err := newJWTApp(revokedSet{}).Test(bearerRequest(token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var locals sessionLocals
	decode(t, resp, &locals)
	require.Equal(t, "google-oauth2|123", locals.UserID)
	require.Equal(t, "admin", locals.Role)
	require.Equal(t, "jti-1", locals.TokenID)
	require.True(t, exp.Equal(locals.Expiry))
}

func TestJWTProtectedRejects(t *testing.T) {
	valid := jwt.MapClaims{"sub": "u1", "jti": "jti-1", "exp": time.Now().Add(time.Hour).Unix()}

	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"wrong secret", signToken(t, "other-secret", valid)},
		{"expired", signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})},
		{"no subject", signToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})},
		{"garbage", "not-a-token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := newJWTApp(nil).Test(bearerRequest(tc.token))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestJWTProtectedRejectsRevokedSessions(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "jti": "jti-1", "exp": time.Now().Add(time.Hour).Unix()})

	resp, err := newJWTApp(revokedSet{"jti-1": true}).Test(bearerRequest(token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = newJWTApp(revokedSet{"jti-2": true}).Test(bearerRequest(token))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsNonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Basic dXNlcjpwYXNz")

	resp, err := newJWTApp(nil).Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
