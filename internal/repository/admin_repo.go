package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// AdminRepository persists administrator records in the admins collection.
type AdminRepository interface {
	Get(ctx context.Context, userID string) (models.AdminUser, error)
	Put(ctx context.Context, admin models.AdminUser) error
	List(ctx context.Context) ([]models.AdminUser, error)
}

type adminRepository struct {
	store docstore.Store
}

// NewAdminRepository constructs the admin repository.
func NewAdminRepository(store docstore.Store) AdminRepository {
	return &adminRepository{store: store}
}

func (r *adminRepository) Get(ctx context.Context, userID string) (models.AdminUser, error) {
	var admin models.AdminUser
	if err := load(ctx, r.store, models.CollectionAdmins, userID, &admin); err != nil {
		return models.AdminUser{}, err
	}
	return admin, nil
}

func (r *adminRepository) Put(ctx context.Context, admin models.AdminUser) error {
	return save(ctx, r.store, models.CollectionAdmins, admin.UserID, admin, docMeta{description: string(admin.Role)})
}

func (r *adminRepository) List(ctx context.Context) ([]models.AdminUser, error) {
	result, err := r.store.List(ctx, models.CollectionAdmins, docstore.ListOptions{OrderBy: docstore.OrderByCreatedAt})
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return decodeAll[models.AdminUser](result.Items)
}
