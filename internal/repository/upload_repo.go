package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// UploadFilter narrows the media library listing.
type UploadFilter struct {
	Page       int
	PageSize   int
	Collection string
	UploadedBy string
}

// UploadRepository persists metadata of stored files.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	List(ctx context.Context, filter UploadFilter) ([]models.UploadRecord, int64, error)
}

type uploadRepository struct {
	store docstore.Store
}

// NewUploadRepository constructs the upload repository.
func NewUploadRepository(store docstore.Store) UploadRepository {
	return &uploadRepository{store: store}
}

// Create records the file under its collection so listings can filter on it.
func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return save(ctx, r.store, models.CollectionUploads, record.ID, record, docMeta{
		description: record.Collection,
		owner:       record.UploadedBy,
	})
}

func (r *uploadRepository) List(ctx context.Context, filter UploadFilter) ([]models.UploadRecord, int64, error) {
	result, err := r.store.List(ctx, models.CollectionUploads, docstore.ListOptions{
		OrderBy:     docstore.OrderByCreatedAt,
		Desc:        true,
		Description: filter.Collection,
		Owner:       filter.UploadedBy,
		Limit:       filter.PageSize,
		Offset:      offset(filter.Page, filter.PageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list uploads: %w", err)
	}

	records, err := decodeAll[models.UploadRecord](result.Items)
	if err != nil {
		return nil, 0, err
	}
	return records, result.Total, nil
}
