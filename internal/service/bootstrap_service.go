package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/roles"
)

var (
	// ErrBootstrapDisabled indicates first-admin bootstrap is disabled by configuration.
	ErrBootstrapDisabled = errors.New("admin bootstrap is disabled")
	// ErrBootstrapClosed indicates an active admin already exists.
	ErrBootstrapClosed = errors.New("admin bootstrap is closed")
)

// BootstrapAdminInput identifies the user claiming the first admin seat.
type BootstrapAdminInput struct {
	UserID string
	Email  string
	Name   string
}

// BootstrapService promotes the first signed-in user to super admin on an empty registry.
type BootstrapService interface {
	BootstrapAdmin(ctx context.Context, input BootstrapAdminInput) (models.AdminUser, error)
}

type bootstrapService struct {
	registry AdminRegistry
	enabled  bool
	logger   zerolog.Logger
}

// NewBootstrapService constructs the bootstrap service.
func NewBootstrapService(registry AdminRegistry, enabled bool, logger zerolog.Logger) BootstrapService {
	return &bootstrapService{
		registry: registry,
		enabled:  enabled,
		logger:   logger.With().Str("component", "bootstrap_service").Logger(),
	}
}

func (s *bootstrapService) BootstrapAdmin(ctx context.Context, input BootstrapAdminInput) (models.AdminUser, error) {
	if !s.enabled {
		return models.AdminUser{}, ErrBootstrapDisabled
	}

	admins, err := s.registry.List(ctx, false)
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("list admins: %w", err)
	}
	if len(admins) > 0 {
		return models.AdminUser{}, ErrBootstrapClosed
	}

	// The admins rule re-checks emptiness inside the write, so a concurrent claim is denied there.
	admin, err := s.registry.Add(ctx, AddAdminInput{
		UserID:    input.UserID,
		CreatorID: input.UserID,
		Role:      roles.SuperAdmin,
		Email:     input.Email,
		Name:      input.Name,
	})
	switch {
	case errors.Is(err, ErrAdminPermissionDenied), errors.Is(err, ErrAdminAlreadyExists):
		return models.AdminUser{}, ErrBootstrapClosed
	case err != nil:
		return models.AdminUser{}, err
	}

	s.logger.Info().Str("user_id", admin.UserID).Msg("first admin bootstrapped")
	return admin, nil
}
