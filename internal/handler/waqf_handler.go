package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// WaqfHandler exposes waqf profiles together with their ledger and analytics.
type WaqfHandler struct {
	waqfs       service.WaqfService
	donations   service.DonationService
	allocations service.AllocationService
	analytics   service.WaqfAnalyticsService
	admins      service.AdminChecker
	logger      zerolog.Logger
}

// NewWaqfHandler constructs the handler.
func NewWaqfHandler(
	waqfs service.WaqfService,
	donations service.DonationService,
	allocations service.AllocationService,
	analytics service.WaqfAnalyticsService,
	admins service.AdminChecker,
	logger zerolog.Logger,
) *WaqfHandler {
	return &WaqfHandler{
		waqfs:       waqfs,
		donations:   donations,
		allocations: allocations,
		analytics:   analytics,
		admins:      admins,
		logger:      logger.With().Str("component", "waqf_handler").Logger(),
	}
}

// Register attaches routes. allocationGuard runs before allocation writes.
func (h *WaqfHandler) Register(router fiber.Router, allocationGuard fiber.Handler) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Post("/:id/activate", h.activate)
	router.Post("/:id/deactivate", h.deactivate)
	router.Post("/:id/archive", h.archive)
	router.Post("/:id/investment-returns", h.investmentReturn)

	router.Post("/:id/donations", h.donate)
	router.Post("/:id/donations/batch", h.donateBatch)
	router.Get("/:id/donations", h.listDonations)
	router.Post("/:id/allocations", allocationGuard, h.allocate)
	router.Get("/:id/allocations", h.listAllocations)

	router.Get("/:id/performance", h.performance)
	router.Get("/:id/analytics", h.periodAnalytics)
	router.Get("/:id/growth", h.growth)
}

func (h *WaqfHandler) create(c *fiber.Ctx) error {
	var req dto.WaqfCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	waqf, err := h.waqfs.Create(requestContext(c), req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create waqf")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "waqf created", waqf)
}

func (h *WaqfHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.WaqfListRequest{
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		CreatedBy: c.Query("created_by"),
	}
	ctx := requestContext(c)
	if !h.admins.IsAdmin(ctx, middleware.UserID(c)) {
		req.CreatedBy = middleware.UserID(c)
	}

	result, err := h.waqfs.List(ctx, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list waqfs")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"sort":       fiber.Map{"by": req.SortBy, "order": req.SortOrder},
	}
	return utils.OK(c, result.Items, "waqfs retrieved", meta)
}

func (h *WaqfHandler) get(c *fiber.Ctx) error {
	waqf, err := h.visibleWaqf(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch waqf")
	}
	return utils.OK(c, waqf, "waqf retrieved", nil)
}

func (h *WaqfHandler) update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.WaqfUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	waqf, err := h.waqfs.Update(requestContext(c), id, req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update waqf")
	}
	return utils.OK(c, waqf, "waqf updated", nil)
}

func (h *WaqfHandler) activate(c *fiber.Ctx) error {
	return h.transition(c, h.waqfs.Activate, "waqf activated")
}

func (h *WaqfHandler) deactivate(c *fiber.Ctx) error {
	return h.transition(c, h.waqfs.Deactivate, "waqf deactivated")
}

func (h *WaqfHandler) archive(c *fiber.Ctx) error {
	return h.transition(c, h.waqfs.Archive, "waqf archived")
}

func (h *WaqfHandler) investmentReturn(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.InvestmentReturnRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	waqf, err := h.waqfs.RecordInvestmentReturn(requestContext(c), id, req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to record investment return")
	}
	return utils.OK(c, waqf, "investment return recorded", nil)
}

func (h *WaqfHandler) donate(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.DonationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	donation, err := h.donations.Record(requestContext(c), id, req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to record donation")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "donation recorded", donation)
}

func (h *WaqfHandler) donateBatch(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req []dto.DonationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	donations, err := h.donations.RecordBatch(requestContext(c), id, req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to record donations")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "donations recorded", donations)
}

func (h *WaqfHandler) listDonations(c *fiber.Ctx) error {
	waqf, err := h.visibleWaqf(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list donations")
	}

	donations, err := h.donations.ListByWaqf(requestContext(c), waqf.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list donations")
	}
	return utils.OK(c, donations, "donations retrieved", fiber.Map{"count": len(donations)})
}

func (h *WaqfHandler) allocate(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.AllocationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	group, err := h.allocations.Allocate(requestContext(c), id, req, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to allocate funds")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "funds allocated", group)
}

func (h *WaqfHandler) listAllocations(c *fiber.Ctx) error {
	waqf, err := h.visibleWaqf(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list allocations")
	}

	groups, err := h.allocations.ListByWaqf(requestContext(c), waqf.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list allocations")
	}
	return utils.OK(c, groups, "allocations retrieved", fiber.Map{"count": len(groups)})
}

func (h *WaqfHandler) performance(c *fiber.Ctx) error {
	waqf, err := h.visibleWaqf(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute performance")
	}

	performance, err := h.analytics.Performance(requestContext(c), waqf.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute performance")
	}
	return utils.OK(c, performance, "performance retrieved", nil)
}

func (h *WaqfHandler) periodAnalytics(c *fiber.Ctx) error {
	waqf, err := h.visibleWaqf(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute analytics")
	}

	analytics, err := h.analytics.Analytics(requestContext(c), waqf.ID, c.Query("period"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute analytics")
	}
	return utils.OK(c, analytics, "analytics retrieved", nil)
}

func (h *WaqfHandler) growth(c *fiber.Ctx) error {
	waqf, err := h.visibleWaqf(c)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute growth")
	}

	growth, err := h.analytics.Growth(requestContext(c), waqf.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute growth")
	}
	return utils.OK(c, growth, "growth retrieved", nil)
}

func (h *WaqfHandler) transition(c *fiber.Ctx, change func(ctx context.Context, id, actorID string) (models.WaqfProfile, error), message string) error {
	id, err := pathID(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	waqf, err := change(requestContext(c), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to change waqf status")
	}
	return utils.OK(c, waqf, message, nil)
}

// visibleWaqf loads the waqf named in the path if the caller owns it or is an admin.
func (h *WaqfHandler) visibleWaqf(c *fiber.Ctx) (models.WaqfProfile, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return models.WaqfProfile{}, fmt.Errorf("%w: %w", service.ErrWaqfValidation, err)
	}

	ctx := requestContext(c)
	waqf, err := h.waqfs.Get(ctx, id)
	if err != nil {
		return models.WaqfProfile{}, err
	}

	userID := middleware.UserID(c)
	if waqf.CreatedBy != userID && !h.admins.IsAdmin(ctx, userID) {
		return models.WaqfProfile{}, service.ErrWaqfNotFound
	}
	return waqf, nil
}
