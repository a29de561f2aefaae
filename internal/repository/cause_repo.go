package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// CauseRepository persists causes.
type CauseRepository interface {
	Get(ctx context.Context, id string) (models.Cause, error)
	Put(ctx context.Context, cause models.Cause) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Cause, error)
}

type causeRepository struct {
	store docstore.Store
}

// NewCauseRepository constructs the cause repository.
func NewCauseRepository(store docstore.Store) CauseRepository {
	return &causeRepository{store: store}
}

func (r *causeRepository) Get(ctx context.Context, id string) (models.Cause, error) {
	var cause models.Cause
	if err := load(ctx, r.store, models.CollectionCauses, id, &cause); err != nil {
		return models.Cause{}, err
	}
	return cause, nil
}

func (r *causeRepository) Put(ctx context.Context, cause models.Cause) error {
	return save(ctx, r.store, models.CollectionCauses, cause.ID, cause, docMeta{
		description: string(cause.Status),
		owner:       cause.CreatedBy,
	})
}

func (r *causeRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, models.CollectionCauses, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete cause %s: %w", id, err)
	}
	return nil
}

func (r *causeRepository) List(ctx context.Context) ([]models.Cause, error) {
	result, err := r.store.List(ctx, models.CollectionCauses, docstore.ListOptions{OrderBy: docstore.OrderByCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("list causes: %w", err)
	}
	return decodeAll[models.Cause](result.Items)
}
