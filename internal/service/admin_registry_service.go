package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/observability"
	"github.com/noah-isme/waqf-api/internal/repository"
	"github.com/noah-isme/waqf-api/internal/roles"
)

var (
	// ErrAdminNotFound indicates the admin does not exist or has been removed.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrAdminPermissionDenied indicates the acting user may not perform the change.
	ErrAdminPermissionDenied = errors.New("admin permission denied")
	// ErrAdminValidation indicates the requested admin record is invalid.
	ErrAdminValidation = errors.New("admin validation failed")
	// ErrAdminAlreadyExists indicates an active admin already uses the id.
	ErrAdminAlreadyExists = errors.New("admin already exists")
	// ErrAuditFailed is matched by errors returned when a removal could not be audited.
	ErrAuditFailed = errors.New("audit write failed")
)

// AuditRollbackError is returned by Remove when the audit entry could not be written. The
// removal has been reverted unless RollbackErr is set.
type AuditRollbackError struct {
	AuditErr    error
	RollbackErr error
}

func (e *AuditRollbackError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("admin removal could not be rolled back after audit failure: audit: %v; rollback: %v", e.AuditErr, e.RollbackErr)
	}
	return fmt.Sprintf("admin removal rolled back due to audit failure: %v", e.AuditErr)
}

func (e *AuditRollbackError) Unwrap() []error {
	errs := []error{ErrAuditFailed, e.AuditErr}
	if e.RollbackErr != nil {
		errs = append(errs, e.RollbackErr)
	}
	return errs
}

// AddAdminInput describes a new administrator. Role defaults to viewer and
// Permissions to the role's full set when nil.
type AddAdminInput struct {
	UserID      string
	CreatorID   string
	Role        roles.Role
	Permissions []roles.Permission
	Email       string
	Name        string
}

// UpdateAdminInput describes changes to an administrator. Nil fields are left untouched.
type UpdateAdminInput struct {
	UserID      string
	UpdaterID   string
	Role        *roles.Role
	Permissions *[]roles.Permission
	Email       *string
	Name        *string
}

// AdminRegistry manages administrator accounts.
type AdminRegistry interface {
	Add(ctx context.Context, input AddAdminInput) (models.AdminUser, error)
	Remove(ctx context.Context, userID, removerID string) error
	Restore(ctx context.Context, userID, actorID string) (models.AdminUser, error)
	Update(ctx context.Context, input UpdateAdminInput) (models.AdminUser, error)
	List(ctx context.Context, includeDeleted bool) ([]models.AdminUser, error)
	Get(ctx context.Context, userID string) (models.AdminUser, error)
	IsAdmin(ctx context.Context, userID string) bool
	HasPermission(ctx context.Context, userID string, permission roles.Permission) bool
	Stats(ctx context.Context) (dto.AdminStatsResponse, error)
	Touch(ctx context.Context, userID string) error
}

type adminRegistry struct {
	repo   repository.AdminRepository
	audit  AuditRecorder
	logger zerolog.Logger
	now    func() time.Time
}

// NewAdminRegistry constructs the admin registry.
func NewAdminRegistry(repo repository.AdminRepository, audit AuditRecorder, logger zerolog.Logger) AdminRegistry {
	return &adminRegistry{
		repo:   repo,
		audit:  audit,
		logger: logger.With().Str("component", "admin_registry").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *adminRegistry) Add(ctx context.Context, input AddAdminInput) (models.AdminUser, error) {
	userID := strings.TrimSpace(input.UserID)
	creatorID := strings.TrimSpace(input.CreatorID)
	if userID == "" || creatorID == "" {
		return models.AdminUser{}, fmt.Errorf("%w: user id and creator id are required", ErrAdminValidation)
	}

	role := input.Role
	if role == "" {
		role = roles.Viewer
	}
	if !role.Valid() {
		return models.AdminUser{}, fmt.Errorf("%w: unknown role %q", ErrAdminValidation, role)
	}

	permissions := input.Permissions
	if permissions == nil {
		permissions = roles.PermissionsFor(role)
	}
	if err := roles.ValidatePermissions(role, permissions); err != nil {
		return models.AdminUser{}, fmt.Errorf("%w: %w", ErrAdminValidation, err)
	}

	existing, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil && existing.Active():
		return models.AdminUser{}, ErrAdminAlreadyExists
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return models.AdminUser{}, fmt.Errorf("load admin %s: %w", userID, err)
	}

	admin := models.AdminUser{
		UserID:      userID,
		Email:       strings.TrimSpace(input.Email),
		Name:        strings.TrimSpace(input.Name),
		Role:        role,
		Permissions: permissions,
		CreatedAt:   s.now(),
		CreatedBy:   creatorID,
	}

	if err := s.repo.Put(docstore.WithCaller(ctx, creatorID), admin); err != nil {
		return models.AdminUser{}, mapAdminStoreError(err)
	}

	s.recordBestEffort(ctx, AuditInput{
		Action:       models.AuditCreateAdmin,
		TargetUserID: userID,
		PerformedBy:  creatorID,
		Details:      adminDetails(admin),
	})

	return admin, nil
}

func (s *adminRegistry) Remove(ctx context.Context, userID, removerID string) error {
	userID = strings.TrimSpace(userID)
	removerID = strings.TrimSpace(removerID)
	if userID == "" || removerID == "" {
		return fmt.Errorf("%w: user id and remover id are required", ErrAdminValidation)
	}

	current, err := s.activeAdmin(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	removed := current
	removed.Deleted = true
	removed.DeletedAt = &now
	removed.DeletedBy = removerID

	callerCtx := docstore.WithCaller(ctx, removerID)
	if err := s.repo.Put(callerCtx, removed); err != nil {
		return mapAdminStoreError(err)
	}

	_, auditErr := s.audit.Record(ctx, AuditInput{
		Action:       models.AuditRemoveAdmin,
		TargetUserID: userID,
		PerformedBy:  removerID,
		Details:      adminDetails(current),
	})
	if auditErr == nil {
		return nil
	}

	observability.AdminRollbacks().Inc()
	rollbackErr := s.repo.Put(callerCtx, current)
	if rollbackErr != nil {
		s.logger.Error().Err(rollbackErr).Str("user_id", userID).Msg("failed to restore admin after audit failure")
	} else {
		s.logger.Warn().Err(auditErr).Str("user_id", userID).Msg("admin removal rolled back")
	}

	return &AuditRollbackError{AuditErr: auditErr, RollbackErr: rollbackErr}
}

func (s *adminRegistry) Restore(ctx context.Context, userID, actorID string) (models.AdminUser, error) {
	userID = strings.TrimSpace(userID)
	actorID = strings.TrimSpace(actorID)
	if userID == "" || actorID == "" {
		return models.AdminUser{}, fmt.Errorf("%w: user id and actor id are required", ErrAdminValidation)
	}

	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.AdminUser{}, ErrAdminNotFound
		}
		return models.AdminUser{}, fmt.Errorf("load admin %s: %w", userID, err)
	}
	if current.Active() {
		return current, nil
	}

	now := s.now()
	restored := current
	restored.Deleted = false
	restored.DeletedAt = nil
	restored.DeletedBy = ""
	restored.UpdatedAt = &now
	restored.UpdatedBy = actorID

	if err := s.repo.Put(docstore.WithCaller(ctx, actorID), restored); err != nil {
		return models.AdminUser{}, mapAdminStoreError(err)
	}

	s.recordBestEffort(ctx, AuditInput{
		Action:       models.AuditRestoreAdmin,
		TargetUserID: userID,
		PerformedBy:  actorID,
		Details:      adminDetails(restored),
	})

	return restored, nil
}

func (s *adminRegistry) Update(ctx context.Context, input UpdateAdminInput) (models.AdminUser, error) {
	userID := strings.TrimSpace(input.UserID)
	updaterID := strings.TrimSpace(input.UpdaterID)
	if userID == "" || updaterID == "" {
		return models.AdminUser{}, fmt.Errorf("%w: user id and updater id are required", ErrAdminValidation)
	}

	current, err := s.activeAdmin(ctx, userID)
	if err != nil {
		return models.AdminUser{}, err
	}

	next := current
	next.Permissions = roles.Normalize(current.Permissions)
	roleChanged := false
	if input.Role != nil {
		if !input.Role.Valid() {
			return models.AdminUser{}, fmt.Errorf("%w: unknown role %q", ErrAdminValidation, *input.Role)
		}
		roleChanged = *input.Role != current.Role
		next.Role = *input.Role
		if roleChanged && input.Permissions == nil {
			next.Permissions = roles.PermissionsFor(next.Role)
		}
	}
	if input.Permissions != nil {
		next.Permissions = append([]roles.Permission(nil), (*input.Permissions)...)
	}
	permissionsChanged := !roles.Equal(current.Permissions, next.Permissions)

	if roleChanged || permissionsChanged {
		if !s.HasPermission(ctx, updaterID, roles.PermissionSuper) {
			return models.AdminUser{}, fmt.Errorf("%w: changing roles or permissions requires super permission", ErrAdminPermissionDenied)
		}
	}
	if err := roles.ValidatePermissions(next.Role, next.Permissions); err != nil {
		return models.AdminUser{}, fmt.Errorf("%w: %w", ErrAdminValidation, err)
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" || !strings.Contains(email, "@") {
			return models.AdminUser{}, fmt.Errorf("%w: a valid email is required", ErrAdminValidation)
		}
		next.Email = email
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return models.AdminUser{}, fmt.Errorf("%w: name must not be empty", ErrAdminValidation)
		}
		next.Name = name
	}

	now := s.now()
	next.UpdatedAt = &now
	next.UpdatedBy = updaterID

	if err := s.repo.Put(docstore.WithCaller(ctx, updaterID), next); err != nil {
		return models.AdminUser{}, mapAdminStoreError(err)
	}

	action := models.AuditUpdateAdmin
	switch {
	case roleChanged:
		action = models.AuditRoleChange
	case permissionsChanged:
		action = models.AuditPermissionChange
	}
	s.recordBestEffort(ctx, AuditInput{
		Action:       action,
		TargetUserID: userID,
		PerformedBy:  updaterID,
		Details:      adminDetails(next),
		Metadata: map[string]interface{}{
			"previous_role":        string(current.Role),
			"previous_permissions": current.Permissions,
		},
	})

	return next, nil
}

func (s *adminRegistry) List(ctx context.Context, includeDeleted bool) ([]models.AdminUser, error) {
	admins, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if includeDeleted {
		return admins, nil
	}

	active := make([]models.AdminUser, 0, len(admins))
	for _, admin := range admins {
		if admin.Active() {
			active = append(active, admin)
		}
	}
	return active, nil
}

func (s *adminRegistry) Get(ctx context.Context, userID string) (models.AdminUser, error) {
	admin, err := s.repo.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.AdminUser{}, ErrAdminNotFound
		}
		return models.AdminUser{}, err
	}
	return admin, nil
}

func (s *adminRegistry) IsAdmin(ctx context.Context, userID string) bool {
	admin, ok := s.lookup(ctx, userID)
	return ok && admin.Active()
}

func (s *adminRegistry) HasPermission(ctx context.Context, userID string, permission roles.Permission) bool {
	admin, ok := s.lookup(ctx, userID)
	return ok && admin.Has(permission)
}

func (s *adminRegistry) Stats(ctx context.Context) (dto.AdminStatsResponse, error) {
	admins, err := s.List(ctx, false)
	if err != nil {
		return dto.AdminStatsResponse{}, err
	}

	stats := dto.AdminStatsResponse{
		Total:        len(admins),
		ByRole:       make(map[roles.Role]int, len(roles.All())),
		ByPermission: make(map[roles.Permission]int, len(roles.AllPermissions())),
	}
	for _, role := range roles.All() {
		stats.ByRole[role] = 0
	}
	for _, permission := range roles.AllPermissions() {
		stats.ByPermission[permission] = 0
	}
	for _, admin := range admins {
		stats.ByRole[admin.Role]++
		if admin.Role == roles.SuperAdmin {
			stats.SuperAdmins++
		}
		for _, permission := range admin.Permissions {
			stats.ByPermission[permission]++
		}
	}
	return stats, nil
}

func (s *adminRegistry) Touch(ctx context.Context, userID string) error {
	admin, err := s.activeAdmin(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	admin.LastActive = &now
	if err := s.repo.Put(docstore.WithCaller(ctx, admin.UserID), admin); err != nil {
		return mapAdminStoreError(err)
	}
	return nil
}

func (s *adminRegistry) activeAdmin(ctx context.Context, userID string) (models.AdminUser, error) {
	admin, err := s.Get(ctx, userID)
	if err != nil {
		return models.AdminUser{}, err
	}
	if !admin.Active() {
		return models.AdminUser{}, ErrAdminNotFound
	}
	return admin, nil
}

func (s *adminRegistry) lookup(ctx context.Context, userID string) (models.AdminUser, bool) {
	if strings.TrimSpace(userID) == "" {
		return models.AdminUser{}, false
	}
	admin, err := s.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrAdminNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("admin lookup failed")
		}
		return models.AdminUser{}, false
	}
	return admin, true
}

func (s *adminRegistry) recordBestEffort(ctx context.Context, input AuditInput) {
	if _, err := s.audit.Record(ctx, input); err != nil {
		s.logger.Warn().Err(err).Str("action", string(input.Action)).Str("target_user_id", input.TargetUserID).Msg("audit entry not written")
	}
}

func mapAdminStoreError(err error) error {
	return mapStoreError(err, ErrAdminPermissionDenied, ErrAdminValidation, "persist admin")
}

func adminDetails(admin models.AdminUser) string {
	payload, err := json.Marshal(map[string]string{
		"role":  string(admin.Role),
		"email": admin.Email,
		"name":  admin.Name,
	})
	if err != nil {
		return ""
	}
	return string(payload)
}
