package handler_test

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/handler"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/service"
)

type mockAuthService struct {
	beginErr    error
	completeErr error
	signedOut   *service.SessionClaims
	events      []dto.AuthStateEvent
}

func (m *mockAuthService) BeginSignIn(context.Context) (dto.SignInStartResponse, error) {
	if m.beginErr != nil {
		return dto.SignInStartResponse{}, m.beginErr
	}
	return dto.SignInStartResponse{AuthURL: "https://issuer.example.com/authorize?state=s1", State: "s1"}, nil
}

func (m *mockAuthService) CompleteSignIn(_ context.Context, req dto.SignInCallbackRequest, progress func(step string)) (dto.SessionResponse, error) {
	progress(service.StepRequestingUserCredential)
	if m.completeErr != nil {
		return dto.SessionResponse{}, m.completeErr
	}
	return dto.SessionResponse{Token: "jwt", User: models.User{Key: "u1", Role: models.UserRoleUser}, Steps: []string{service.StepRequestingUserCredential}}, nil
}

func (m *mockAuthService) SignOut(_ context.Context, claims service.SessionClaims) error {
	m.signedOut = &claims
	return nil
}

func (m *mockAuthService) IsRevoked(context.Context, string) bool { return false }

func (m *mockAuthService) CurrentUser(_ context.Context, key string) (models.User, error) {
	if key != "u1" {
		return models.User{}, service.ErrUserNotFound
	}
	return models.User{Key: key, Role: models.UserRoleUser}, nil
}

func (m *mockAuthService) Subscribe() (<-chan dto.AuthStateEvent, func()) {
	ch := make(chan dto.AuthStateEvent, len(m.events))
	for _, event := range m.events {
		ch <- event
	}
	close(ch)
	return ch, func() {}
}

func (m *mockAuthService) Start(context.Context) error { return nil }

func sessionGuard(tokenID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, "u1")
		c.Locals(middleware.LocalUserRole, "user")
		if tokenID != "" {
			c.Locals(middleware.LocalTokenID, tokenID)
			c.Locals(middleware.LocalTokenExp, time.Now().Add(time.Hour))
		}
		return c.Next()
	}
}

func newAuthApp(svc service.AuthService, tokenID string) *fiber.App {
	app := fiber.New()
	h := handler.NewAuthHandler(svc, testValidator(), zerolog.Nop())
	group := app.Group("/api/v1/auth")
	h.RegisterPublic(group)
	h.RegisterSession(group, sessionGuard(tokenID))
	return app
}

func TestAuthHandlerBeginSignIn(t *testing.T) {
	app := newAuthApp(&mockAuthService{}, "")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/sign-in", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.SignInStartResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "s1", body.Data.State)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/sign-in?redirect=true", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	require.Equal(t, "https://issuer.example.com/authorize?state=s1", resp.Header.Get(fiber.HeaderLocation))
}

func TestAuthHandlerBeginSignInWithoutProvider(t *testing.T) {
	app := newAuthApp(&mockAuthService{beginErr: service.ErrIdentityUnavailable}, "")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/sign-in", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthHandlerCallback(t *testing.T) {
	app := newAuthApp(&mockAuthService{}, "")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/callback", map[string]string{"code": "abc"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeEnvelope(t, resp)
	require.Equal(t, "required", body.Details["SignInCallbackRequest.State"])

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/callback", map[string]string{"code": "abc", "state": "s1"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var session struct {
		Data dto.SessionResponse `json:"data"`
	}
	decodeResponse(t, resp, &session)
	require.Equal(t, "jwt", session.Data.Token)
	require.Equal(t, "u1", session.Data.User.Key)
}

func TestAuthHandlerCallbackFailures(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrInvalidSignInState, fiber.StatusBadRequest},
		{service.ErrSignInFailed, fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			app := newAuthApp(&mockAuthService{completeErr: tc.err}, "")

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/callback", map[string]string{"code": "abc", "state": "s1"}))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestAuthHandlerSignOut(t *testing.T) {
	svc := &mockAuthService{}
	app := newAuthApp(svc, "jti-1")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/sign-out", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.signedOut)
	require.Equal(t, "jti-1", svc.signedOut.TokenID)
	require.Equal(t, "u1", svc.signedOut.Subject)
	require.Equal(t, models.UserRoleUser, svc.signedOut.Role)
	require.False(t, svc.signedOut.ExpiresAt.IsZero())
}

func TestAuthHandlerSignOutWithoutTokenID(t *testing.T) {
	svc := &mockAuthService{}
	app := newAuthApp(svc, "")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/sign-out", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, svc.signedOut)
}

func TestAuthHandlerMe(t *testing.T) {
	app := newAuthApp(&mockAuthService{}, "jti-1")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data models.User `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "u1", body.Data.Key)
}

func TestAuthHandlerEventsStream(t *testing.T) {
	svc := &mockAuthService{events: []dto.AuthStateEvent{
		{Type: service.AuthEventSignedIn, User: &models.User{Key: "u1"}, OccurredAt: time.Now().UTC()},
	}}
	app := newAuthApp(svc, "jti-1")

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/auth/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
		if err != nil || strings.HasPrefix(line, "data:") {
			break
		}
	}

	require.Len(t, lines, 2)
	require.Equal(t, "event: signed_in", lines[0])
	require.Contains(t, lines[1], `"key":"u1"`)
}
