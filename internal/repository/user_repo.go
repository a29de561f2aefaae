package repository

import (
	"context"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// UserRepository persists signed-in principals.
type UserRepository interface {
	Get(ctx context.Context, key string) (models.User, error)
	Put(ctx context.Context, user models.User) error
}

type userRepository struct {
	store docstore.Store
}

// NewUserRepository constructs the user repository.
func NewUserRepository(store docstore.Store) UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Get(ctx context.Context, key string) (models.User, error) {
	var user models.User
	if err := load(ctx, r.store, models.CollectionUsers, key, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Put(ctx context.Context, user models.User) error {
	return save(ctx, r.store, models.CollectionUsers, user.Key, user, docMeta{owner: user.Key})
}
