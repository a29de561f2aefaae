package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/middleware"
	"github.com/noah-isme/waqf-api/internal/roles"
	"github.com/noah-isme/waqf-api/internal/service"
	"github.com/noah-isme/waqf-api/internal/utils"
)

// errorStatuses maps service sentinels onto HTTP statuses. Order matters: the first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrAdminNotFound, fiber.StatusNotFound},
	{service.ErrWaqfNotFound, fiber.StatusNotFound},
	{service.ErrCauseNotFound, fiber.StatusNotFound},
	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrAdminPermissionDenied, fiber.StatusForbidden},
	{service.ErrWaqfPermissionDenied, fiber.StatusForbidden},
	{service.ErrCausePermissionDenied, fiber.StatusForbidden},
	{service.ErrBootstrapDisabled, fiber.StatusForbidden},
	{service.ErrAdminAlreadyExists, fiber.StatusConflict},
	{service.ErrBootstrapClosed, fiber.StatusConflict},
	{service.ErrWaqfArchived, fiber.StatusConflict},
	{service.ErrWaqfInactive, fiber.StatusConflict},
	{service.ErrInsufficientBalance, fiber.StatusUnprocessableEntity},
	{service.ErrAdminValidation, fiber.StatusBadRequest},
	{service.ErrWaqfValidation, fiber.StatusBadRequest},
	{service.ErrCauseValidation, fiber.StatusBadRequest},
	{service.ErrDonationValidation, fiber.StatusBadRequest},
	{service.ErrAllocationValidation, fiber.StatusBadRequest},
	{service.ErrInvalidAuditEntry, fiber.StatusBadRequest},
	{service.ErrInvalidPeriod, fiber.StatusBadRequest},
	{service.ErrInvalidSignInState, fiber.StatusBadRequest},
	{service.ErrUploadCollection, fiber.StatusBadRequest},
	{service.ErrUploadMissingFile, fiber.StatusBadRequest},
	{service.ErrUploadTypeNotAllowed, fiber.StatusUnsupportedMediaType},
	{service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge},
	{service.ErrSignInFailed, fiber.StatusUnauthorized},
	{service.ErrIdentityUnavailable, fiber.StatusServiceUnavailable},
	{roles.ErrUnknownRole, fiber.StatusBadRequest},
	{roles.ErrUnknownPermission, fiber.StatusBadRequest},
	{roles.ErrPermissionsExceedRole, fiber.StatusBadRequest},
}

// respondError translates err into a response. Unknown errors are logged and reported as
// fallback with status 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	var rollback *service.AuditRollbackError
	if errors.As(err, &rollback) {
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, rollback.Error())
	}

	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.err) {
			return utils.SendError(c, candidate.status, err.Error())
		}
	}

	requestLogger(logger, c).Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Namespace()] = fieldErr.Tag()
	}
	return details
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// parsePaging reads page and pageSize, accepting page_size as well.
func parsePaging(c *fiber.Ctx) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return 0, 0, errors.New("invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return 0, 0, errors.New("invalid page size")
	}
	if pageSize == 0 {
		if legacy, legacyErr := parseQueryInt(c, "page_size"); legacyErr == nil {
			pageSize = legacy
		}
	}
	return page, pageSize, nil
}

func pathID(c *fiber.Ctx, name string) (string, error) {
	value := strings.TrimSpace(c.Params(name))
	if value == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return value, nil
}

// requestContext carries correlation and client details into the service layer.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
	return service.WithRequestMeta(ctx, service.RequestMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	})
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func writeEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := w.WriteString(": keepalive\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
