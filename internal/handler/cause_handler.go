package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// CauseHandler exposes public cause browsing and admin moderation.
type CauseHandler struct {
	service service.CauseService
	logger  zerolog.Logger
}

// NewCauseHandler constructs the handler.
func NewCauseHandler(service service.CauseService, logger zerolog.Logger) *CauseHandler {
	return &CauseHandler{
		service: service,
		logger:  logger.With().Str("component", "cause_handler").Logger(),
	}
}

// RegisterPublic attaches anonymous routes. followGuard authenticates follow requests.
func (h *CauseHandler) RegisterPublic(router fiber.Router, followGuard fiber.Handler) {
	router.Get("", h.listPublic)
	router.Get("/:id", h.getPublic)
	router.Post("/:id/follow", followGuard, h.follow)
}

// RegisterAdmin attaches moderation routes.
func (h *CauseHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.listAdmin)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
}

func (h *CauseHandler) listPublic(c *fiber.Ctx) error {
	req, err := causeListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ListPublic(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list causes")
	}
	return utils.OK(c, result.Items, "causes retrieved", causeListMeta(req, result))
}

func (h *CauseHandler) listAdmin(c *fiber.Ctx) error {
	req, err := causeListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	req.Status = c.Query("status")
	req.ActiveOnly = c.QueryBool("active_only", false)

	result, err := h.service.ListAdmin(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list causes")
	}
	return utils.OK(c, result.Items, "causes retrieved", causeListMeta(req, result))
}

func (h *CauseHandler) getPublic(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cause, err := h.service.GetPublic(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch cause")
	}
	return utils.OK(c, cause, "cause retrieved", nil)
}

func (h *CauseHandler) get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cause, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch cause")
	}
	return utils.OK(c, cause, "cause retrieved", nil)
}

func (h *CauseHandler) follow(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cause, err := h.service.Follow(requestContext(c), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to follow cause")
	}
	return utils.OK(c, cause, "cause followed", nil)
}

func (h *CauseHandler) create(c *fiber.Ctx) error {
	var req dto.CauseCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	cause, err := h.service.Create(requestContext(c), req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create cause")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "cause created", cause)
}

func (h *CauseHandler) update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.CauseUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	cause, err := h.service.Update(requestContext(c), id, req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update cause")
	}
	return utils.OK(c, cause, "cause updated", nil)
}

func (h *CauseHandler) delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), id, middleware.UserID(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete cause")
	}
	return utils.SendSuccess(c, "cause deleted", fiber.Map{"id": id})
}

func (h *CauseHandler) approve(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cause, err := h.service.Approve(requestContext(c), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to approve cause")
	}
	return utils.OK(c, cause, "cause approved", nil)
}

func (h *CauseHandler) reject(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cause, err := h.service.Reject(requestContext(c), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to reject cause")
	}
	return utils.OK(c, cause, "cause rejected", nil)
}

func causeListRequest(c *fiber.Ctx) (dto.CauseListRequest, error) {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return dto.CauseListRequest{}, err
	}
	return dto.CauseListRequest{
		Page:     page,
		PageSize: pageSize,
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}, nil
}

func causeListMeta(req dto.CauseListRequest, result dto.CauseListResponse) fiber.Map {
	return fiber.Map{
		"pagination": result.Pagination,
		"filters": fiber.Map{
			"category": req.Category,
			"search":   req.Search,
			"status":   req.Status,
		},
	}
}
