package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// AuditFilter narrows audit trail queries.
type AuditFilter struct {
	Page         int
	PageSize     int
	TargetUserID string
	PerformedBy  string
}

// AuditRepository appends to and reads the admin_audit collection.
type AuditRepository interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error)
}

type auditRepository struct {
	store docstore.Store
}

// NewAuditRepository constructs the audit repository.
func NewAuditRepository(store docstore.Store) AuditRepository {
	return &auditRepository{store: store}
}

func (r *auditRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	return save(ctx, r.store, models.CollectionAdminAudit, entry.ID, entry, docMeta{
		description: auditTargetDescription(entry.TargetUserID),
		owner:       entry.PerformedBy,
	})
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, int64, error) {
	opts := docstore.ListOptions{
		OrderBy: docstore.OrderByCreatedAt,
		Desc:    true,
		Owner:   filter.PerformedBy,
		Limit:   filter.PageSize,
		Offset:  offset(filter.Page, filter.PageSize),
	}
	if filter.TargetUserID != "" {
		opts.Description = auditTargetDescription(filter.TargetUserID)
	}

	result, err := r.store.List(ctx, models.CollectionAdminAudit, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	entries, err := decodeAll[models.AuditEntry](result.Items)
	if err != nil {
		return nil, 0, err
	}
	return entries, result.Total, nil
}

func auditTargetDescription(target string) string {
	if target == "" {
		return ""
	}
	return "target:" + target
}
