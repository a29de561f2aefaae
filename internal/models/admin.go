package models

import (
	"time"

	"github.com/noah-isme/waqf-api/internal/roles"
)

// AdminUser is a registered administrator. Admins are never hard-deleted; Deleted marks removal.
type AdminUser struct {
	UserID      string             `json:"user_id"`
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	Role        roles.Role         `json:"role"`
	Permissions []roles.Permission `json:"permissions"`
	CreatedAt   time.Time          `json:"created_at"`
	CreatedBy   string             `json:"created_by"`
	UpdatedAt   *time.Time         `json:"updated_at,omitempty"`
	UpdatedBy   string             `json:"updated_by,omitempty"`
	LastActive  *time.Time         `json:"last_active,omitempty"`
	Deleted     bool               `json:"deleted,omitempty"`
	DeletedAt   *time.Time         `json:"deleted_at,omitempty"`
	DeletedBy   string             `json:"deleted_by,omitempty"`
}

// Active reports whether the admin has not been removed.
func (a AdminUser) Active() bool {
	return !a.Deleted
}

// Has reports whether the admin is active and holds permission.
func (a AdminUser) Has(permission roles.Permission) bool {
	return a.Active() && roles.Contains(a.Permissions, permission)
}

// AuditAction names an auditable admin operation.
type AuditAction string

const (
	AuditCreateAdmin      AuditAction = "create_admin"
	AuditUpdateAdmin      AuditAction = "update_admin"
	AuditRemoveAdmin      AuditAction = "remove_admin"
	AuditRestoreAdmin     AuditAction = "restore_admin"
	AuditRoleChange       AuditAction = "role_change"
	AuditPermissionChange AuditAction = "permission_change"
	AuditHealthCheck      AuditAction = "health_check"
)

// Valid reports whether the action is one of the known audit actions.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreateAdmin, AuditUpdateAdmin, AuditRemoveAdmin, AuditRestoreAdmin,
		AuditRoleChange, AuditPermissionChange, AuditHealthCheck:
		return true
	}
	return false
}

// Critical reports whether the action changes who can do what.
func (a AuditAction) Critical() bool {
	switch a {
	case AuditRemoveAdmin, AuditRoleChange, AuditPermissionChange:
		return true
	}
	return false
}

// AuditEntry is an append-only record of an admin operation.
type AuditEntry struct {
	ID           string                 `json:"id"`
	Action       AuditAction            `json:"action"`
	TargetUserID string                 `json:"target_user_id"`
	PerformedBy  string                 `json:"performed_by"`
	Timestamp    time.Time              `json:"timestamp"`
	Details      string                 `json:"details,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
}
