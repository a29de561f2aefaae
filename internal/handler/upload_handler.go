package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// UploadHandler handles file uploads for cause content.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.upload)
	router.Post("/:collection", h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	collection := c.Params("collection")
	if collection == "" {
		collection = c.FormValue("collection", models.CollectionUploads)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.Upload(requestContext(c), collection, file, middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, "upload failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "upload successful", result)
}

func (h *UploadHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePaging(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.List(requestContext(c), dto.UploadListRequest{
		Page:       page,
		PageSize:   pageSize,
		Collection: c.Query("collection"),
		UploadedBy: c.Query("uploaded_by"),
	})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list uploads")
	}

	return utils.OK(c, result.Items, "uploads retrieved", fiber.Map{"pagination": result.Pagination})
}
