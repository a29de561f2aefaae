package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// WaqfFilter pages and orders waqf listings.
type WaqfFilter struct {
	Page      int
	PageSize  int
	OrderBy   string
	Desc      bool
	CreatedBy string
}

// WaqfRepository persists waqf profiles.
type WaqfRepository interface {
	Get(ctx context.Context, id string) (models.WaqfProfile, error)
	Put(ctx context.Context, waqf models.WaqfProfile) error
	List(ctx context.Context, filter WaqfFilter) ([]models.WaqfProfile, int64, error)
}

type waqfRepository struct {
	store docstore.Store
}

// NewWaqfRepository constructs the waqf repository.
func NewWaqfRepository(store docstore.Store) WaqfRepository {
	return &waqfRepository{store: store}
}

func (r *waqfRepository) Get(ctx context.Context, id string) (models.WaqfProfile, error) {
	var waqf models.WaqfProfile
	if err := load(ctx, r.store, models.CollectionWaqfs, id, &waqf); err != nil {
		return models.WaqfProfile{}, err
	}
	return waqf, nil
}

func (r *waqfRepository) Put(ctx context.Context, waqf models.WaqfProfile) error {
	return save(ctx, r.store, models.CollectionWaqfs, waqf.ID, waqf, docMeta{
		description: string(waqf.Status),
		owner:       waqf.CreatedBy,
	})
}

func (r *waqfRepository) List(ctx context.Context, filter WaqfFilter) ([]models.WaqfProfile, int64, error) {
	result, err := r.store.List(ctx, models.CollectionWaqfs, docstore.ListOptions{
		OrderBy: filter.OrderBy,
		Desc:    filter.Desc,
		Owner:   filter.CreatedBy,
		Limit:   filter.PageSize,
		Offset:  offset(filter.Page, filter.PageSize),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list waqfs: %w", err)
	}

	waqfs, err := decodeAll[models.WaqfProfile](result.Items)
	if err != nil {
		return nil, 0, err
	}
	return waqfs, result.Total, nil
}
