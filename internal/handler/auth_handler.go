package handler

import (
	"bufio"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// AuthHandler exposes federated sign-in and session endpoints.
type AuthHandler struct {
	service   service.AuthService
	validator *validator.Validate
	keepAlive time.Duration
	logger    zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, validate *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: validate,
		keepAlive: 30 * time.Second,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic attaches the sign-in routes.
func (h *AuthHandler) RegisterPublic(router fiber.Router) {
	router.Get("/sign-in", h.beginSignIn)
	router.Post("/callback", h.callback)
}

// RegisterSession attaches routes that require a session token. guard authenticates them.
func (h *AuthHandler) RegisterSession(router fiber.Router, guard fiber.Handler) {
	router.Post("/sign-out", guard, h.signOut)
	router.Get("/me", guard, h.me)
	router.Get("/events", guard, h.events)
}

func (h *AuthHandler) beginSignIn(c *fiber.Ctx) error {
	start, err := h.service.BeginSignIn(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to start sign-in")
	}
	if c.QueryBool("redirect", false) {
		return c.Redirect(start.AuthURL, fiber.StatusFound)
	}
	return utils.OK(c, start, "sign-in started", nil)
}

func (h *AuthHandler) callback(c *fiber.Ctx) error {
	var req dto.SignInCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, h.logger, err, "sign-in failed")
	}

	logger := requestLogger(h.logger, c)
	session, err := h.service.CompleteSignIn(requestContext(c), req, func(step string) {
		logger.Debug().Str("step", step).Msg("sign-in progress")
	})
	if err != nil {
		return respondError(c, h.logger, err, "sign-in failed")
	}
	return utils.OK(c, session, "signed in", nil)
}

func (h *AuthHandler) signOut(c *fiber.Ctx) error {
	claims := service.SessionClaims{
		Subject:   middleware.UserID(c),
		Role:      models.UserRole(middleware.UserRole(c)),
		TokenID:   middleware.TokenID(c),
		ExpiresAt: middleware.TokenExpiry(c),
	}
	if claims.TokenID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "session token has no id")
	}

	if err := h.service.SignOut(requestContext(c), claims); err != nil {
		return respondError(c, h.logger, err, "sign-out failed")
	}
	return utils.SendSuccess(c, "signed out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user, err := h.service.CurrentUser(requestContext(c), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load user")
	}
	return utils.OK(c, user, "user retrieved", nil)
}

// events streams auth-state changes as server-sent events.
func (h *AuthHandler) events(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	updates, cancel := h.service.Subscribe()
	interval := h.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, event.Type, event); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write auth-state event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					return
				}
			}
		}
	})

	return nil
}
