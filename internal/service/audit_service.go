package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/observability"
	"github.com/noah-isme/waqf-api/internal/repository"
)

// ErrInvalidAuditEntry indicates the entry is missing required fields.
var ErrInvalidAuditEntry = errors.New("invalid audit entry")

// AuditInput captures the details required to persist an audit entry.
type AuditInput struct {
	Action       models.AuditAction
	TargetUserID string
	PerformedBy  string
	Details      string
	Metadata     map[string]interface{}
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, input AuditInput) (models.AuditEntry, error)
}

// AuditService exposes methods to query and persist audit entries.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error)
}

type auditService struct {
	repo   repository.AuditRepository
	events EventBus
	logger zerolog.Logger
	now    func() time.Time
}

// NewAuditService constructs the audit log service.
func NewAuditService(repo repository.AuditRepository, events EventBus, logger zerolog.Logger) AuditService {
	if events == nil {
		events = NopEventBus{}
	}
	return &auditService{
		repo:   repo,
		events: events,
		logger: logger.With().Str("component", "audit_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *auditService) Record(ctx context.Context, input AuditInput) (models.AuditEntry, error) {
	if !input.Action.Valid() {
		return models.AuditEntry{}, fmt.Errorf("%w: unknown action %q", ErrInvalidAuditEntry, input.Action)
	}
	performedBy := strings.TrimSpace(input.PerformedBy)
	if performedBy == "" {
		return models.AuditEntry{}, fmt.Errorf("%w: actor is required", ErrInvalidAuditEntry)
	}

	now := s.now()
	meta := RequestMetaFromContext(ctx)
	entry := models.AuditEntry{
		ID:           auditKey(now, input.Action),
		Action:       input.Action,
		TargetUserID: strings.TrimSpace(input.TargetUserID),
		PerformedBy:  performedBy,
		Timestamp:    now,
		Details:      strings.TrimSpace(input.Details),
		Metadata:     sanitizeMetadata(input.Metadata),
		UserAgent:    meta.UserAgent,
		IPAddress:    meta.IPAddress,
	}

	if err := s.repo.Append(docstore.WithCaller(ctx, performedBy), entry); err != nil {
		observability.AuditAppendFailures().Inc()
		s.logger.Error().Err(err).Str("action", string(entry.Action)).Str("target_user_id", entry.TargetUserID).Msg("failed to persist audit entry")
		return models.AuditEntry{}, err
	}

	if entry.Action.Critical() {
		s.logger.Warn().
			Str("action", string(entry.Action)).
			Str("target_user_id", entry.TargetUserID).
			Str("performed_by", entry.PerformedBy).
			Msg("critical admin action")
		if err := s.events.Publish(ctx, SubjectAdminAudit, entry); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish audit event")
		}
	}

	return entry, nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error) {
	if req.PageSize <= 0 {
		req.PageSize = 50
	}
	if req.PageSize > 200 {
		req.PageSize = 200
	}

	entries, total, err := s.repo.List(ctx, repository.AuditFilter{
		Page:         req.Page,
		PageSize:     req.PageSize,
		TargetUserID: strings.TrimSpace(req.TargetUserID),
		PerformedBy:  strings.TrimSpace(req.PerformedBy),
	})
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	return dto.AuditListResponse{
		Items:      entries,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func auditKey(at time.Time, action models.AuditAction) string {
	return fmt.Sprintf("%d-%s-%s", at.UnixMilli(), action, uuid.NewString()[:8])
}

func sanitizeMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(metadata) == 0 {
		return nil
	}

	sanitized := make(map[string]interface{}, len(metadata))
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "token") || strings.Contains(lower, "secret") || strings.Contains(lower, "password") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}
