package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// BootstrapHandler exposes the first-admin bootstrap endpoint.
type BootstrapHandler struct {
	service   service.BootstrapService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewBootstrapHandler constructs a bootstrap handler.
func NewBootstrapHandler(service service.BootstrapService, validate *validator.Validate, logger zerolog.Logger) *BootstrapHandler {
	return &BootstrapHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "bootstrap_handler").Logger(),
	}
}

// Register wires bootstrap routes.
func (h *BootstrapHandler) Register(router fiber.Router) {
	router.Post("/bootstrap", h.bootstrap)
}

func (h *BootstrapHandler) bootstrap(c *fiber.Ctx) error {
	var req dto.AdminBootstrapRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, h.logger, err, "failed to bootstrap admin")
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = middleware.UserEmail(c)
	}

	admin, err := h.service.BootstrapAdmin(requestContext(c), service.BootstrapAdminInput{
		UserID: middleware.UserID(c),
		Email:  email,
		Name:   req.Name,
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to bootstrap admin")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "admin bootstrapped", dto.NewAdminResponse(admin))
}
