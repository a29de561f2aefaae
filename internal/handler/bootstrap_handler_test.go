package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/handler"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/roles"
	"github.com/noah-isme/waqf-api/internal/service"
)

type stubBootstrapService struct {
	last service.BootstrapAdminInput
	err  error
}

func (s *stubBootstrapService) BootstrapAdmin(_ context.Context, input service.BootstrapAdminInput) (models.AdminUser, error) {
	s.last = input
	if s.err != nil {
		return models.AdminUser{}, s.err
	}
	return models.AdminUser{UserID: input.UserID, Email: input.Email, Name: input.Name, Role: roles.SuperAdmin, CreatedBy: input.UserID}, nil
}

func newBootstrapApp(svc service.BootstrapService, email string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/admin", asUser("founder", "user"), func(c *fiber.Ctx) error {
		if email != "" {
			c.Locals(middleware.LocalUserEmail, email)
		}
		return c.Next()
	})
	handler.NewBootstrapHandler(svc, testValidator(), zerolog.Nop()).Register(group)
	return app
}

func TestBootstrapHandlerFallsBackToSessionEmail(t *testing.T) {
	svc := &stubBootstrapService{}
	app := newBootstrapApp(svc, "founder@example.com")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/admin/bootstrap", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, service.BootstrapAdminInput{UserID: "founder", Email: "founder@example.com"}, svc.last)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/v1/admin/bootstrap", map[string]string{"email": "ops@example.com", "name": "Ops"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "ops@example.com", svc.last.Email)
	require.Equal(t, "Ops", svc.last.Name)
}

func TestBootstrapHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrBootstrapClosed, fiber.StatusConflict},
		{service.ErrBootstrapDisabled, fiber.StatusForbidden},
		{service.ErrAdminValidation, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		app := newBootstrapApp(&stubBootstrapService{err: tc.err}, "founder@example.com")
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/admin/bootstrap", nil))
		require.NoError(t, err)
		require.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
	}

	app := newBootstrapApp(&stubBootstrapService{}, "")
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/admin/bootstrap", map[string]string{"email": "not-an-email"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "email", decodeEnvelope(t, resp).Details["AdminBootstrapRequest.Email"])
}
