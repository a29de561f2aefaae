package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// AuditHandler serves the admin audit trail.
type AuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AuditHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.AuditListRequest{
		Page:         page,
		PageSize:     pageSize,
		TargetUserID: c.Query("target_user_id"),
		PerformedBy:  c.Query("performed_by"),
	}

	result, err := h.service.List(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list audit entries")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters": fiber.Map{
			"target_user_id": req.TargetUserID,
			"performed_by":   req.PerformedBy,
		},
	}
	return utils.OK(c, result.Items, "audit entries retrieved", meta)
}
