package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/roles"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// AdminHandler exposes administrator management endpoints.
type AdminHandler struct {
	registry  service.AdminRegistry
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(registry service.AdminRegistry, validate *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		registry:  registry,
		validator: validate,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/stats", h.stats)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Post("/:id/restore", h.restore)
}

func (h *AdminHandler) list(c *fiber.Ctx) error {
	includeDeleted := c.QueryBool("include_deleted", false)

	admins, err := h.registry.List(requestContext(c), includeDeleted)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list admins")
	}

	meta := fiber.Map{"filters": fiber.Map{"include_deleted": includeDeleted}}
	return utils.OK(c, dto.NewAdminResponses(admins), "admins retrieved", meta)
}

func (h *AdminHandler) stats(c *fiber.Ctx) error {
	stats, err := h.registry.Stats(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute admin stats")
	}
	return utils.OK(c, stats, "admin stats retrieved", nil)
}

func (h *AdminHandler) get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	admin, err := h.registry.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch admin")
	}
	return utils.OK(c, dto.NewAdminResponse(admin), "admin retrieved", nil)
}

func (h *AdminHandler) create(c *fiber.Ctx) error {
	var req dto.AdminCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, h.logger, err, "failed to add admin")
	}

	input := service.AddAdminInput{
		UserID:    req.UserID,
		CreatorID: middleware.UserID(c),
		Email:     req.Email,
		Name:      req.Name,
	}
	if req.Role != "" {
		role, err := roles.ParseRole(req.Role)
		if err != nil {
			return respondError(c, h.logger, err, "failed to add admin")
		}
		input.Role = role
	}
	if req.Permissions != nil {
		permissions, err := parsePermissions(req.Permissions)
		if err != nil {
			return respondError(c, h.logger, err, "failed to add admin")
		}
		input.Permissions = permissions
	}

	admin, err := h.registry.Add(requestContext(c), input)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add admin")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "admin added", dto.NewAdminResponse(admin))
}

func (h *AdminHandler) update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.AdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, h.logger, err, "failed to update admin")
	}

	input := service.UpdateAdminInput{
		UserID:    id,
		UpdaterID: middleware.UserID(c),
		Email:     req.Email,
		Name:      req.Name,
	}
	if req.Role != nil {
		role, err := roles.ParseRole(*req.Role)
		if err != nil {
			return respondError(c, h.logger, err, "failed to update admin")
		}
		input.Role = &role
	}
	if req.Permissions != nil {
		permissions, err := parsePermissions(*req.Permissions)
		if err != nil {
			return respondError(c, h.logger, err, "failed to update admin")
		}
		input.Permissions = &permissions
	}

	admin, err := h.registry.Update(requestContext(c), input)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update admin")
	}
	return utils.OK(c, dto.NewAdminResponse(admin), "admin updated", nil)
}

func (h *AdminHandler) remove(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.registry.Remove(requestContext(c), id, middleware.UserID(c)); err != nil {
		return respondError(c, h.logger, err, "failed to remove admin")
	}
	return utils.SendSuccess(c, "admin removed", fiber.Map{"user_id": id})
}

func (h *AdminHandler) restore(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	admin, err := h.registry.Restore(requestContext(c), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to restore admin")
	}
	return utils.OK(c, dto.NewAdminResponse(admin), "admin restored", nil)
}

func parsePermissions(values []string) ([]roles.Permission, error) {
	out := make([]roles.Permission, 0, len(values))
	for _, value := range values {
		permission, err := roles.ParsePermission(value)
		if err != nil {
			return nil, err
		}
		out = append(out, permission)
	}
	return out, nil
}
