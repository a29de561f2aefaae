package dto

import (
	"time"

	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/roles"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta computes page counts for a listing.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
		if meta.TotalPages == 0 {
			meta.TotalPages = 1
		}
	}
	return meta
}

// AdminCreateRequest registers a user as administrator.
type AdminCreateRequest struct {
	UserID      string   `json:"user_id" validate:"required,max=128"`
	Email       string   `json:"email" validate:"required,email,max=254"`
	Name        string   `json:"name" validate:"required,max=120"`
	Role        string   `json:"role" validate:"omitempty,oneof=viewer editor manager super_admin"`
	Permissions []string `json:"permissions" validate:"omitempty,unique,dive,oneof=content users settings super"`
}

// AdminBootstrapRequest claims the first admin seat. Email defaults to the session's email claim.
type AdminBootstrapRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Name  string `json:"name" validate:"omitempty,max=120"`
}

// AdminUpdateRequest changes an administrator. Nil fields are left untouched.
type AdminUpdateRequest struct {
	Role        *string   `json:"role" validate:"omitempty,oneof=viewer editor manager super_admin"`
	Permissions *[]string `json:"permissions" validate:"omitempty,unique,dive,oneof=content users settings super"`
	Email       *string   `json:"email" validate:"omitempty,email,max=254"`
	Name        *string   `json:"name" validate:"omitempty,min=1,max=120"`
}

// AdminResponse serialises an administrator.
type AdminResponse struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
	LastActive  *time.Time `json:"last_active,omitempty"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedBy   string     `json:"deleted_by,omitempty"`
}

// NewAdminResponse converts an admin model into its response.
func NewAdminResponse(admin models.AdminUser) AdminResponse {
	permissions := make([]string, 0, len(admin.Permissions))
	for _, p := range admin.Permissions {
		permissions = append(permissions, string(p))
	}

	return AdminResponse{
		UserID:      admin.UserID,
		Email:       admin.Email,
		Name:        admin.Name,
		Role:        string(admin.Role),
		Permissions: permissions,
		CreatedAt:   admin.CreatedAt,
		CreatedBy:   admin.CreatedBy,
		UpdatedAt:   admin.UpdatedAt,
		UpdatedBy:   admin.UpdatedBy,
		LastActive:  admin.LastActive,
		Deleted:     admin.Deleted,
		DeletedAt:   admin.DeletedAt,
		DeletedBy:   admin.DeletedBy,
	}
}

// NewAdminResponses converts a slice of admins.
func NewAdminResponses(admins []models.AdminUser) []AdminResponse {
	out := make([]AdminResponse, 0, len(admins))
	for _, admin := range admins {
		out = append(out, NewAdminResponse(admin))
	}
	return out
}

// AdminStatsResponse summarises the registry.
type AdminStatsResponse struct {
	Total        int                      `json:"total"`
	SuperAdmins  int                      `json:"super_admins"`
	ByRole       map[roles.Role]int       `json:"by_role"`
	ByPermission map[roles.Permission]int `json:"by_permission"`
}

// AuditListRequest filters the audit trail.
type AuditListRequest struct {
	Page         int
	PageSize     int
	TargetUserID string
	PerformedBy  string
}

// AuditListResponse wraps a page of audit entries.
type AuditListResponse struct {
	Items      []models.AuditEntry `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}
