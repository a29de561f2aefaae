package dto

import "github.com/noah-isme/waqf-api/internal/models"

// CauseCreateRequest is the payload for creating a cause.
type CauseCreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"required,min=20,max=5000"`
	Icon        string `json:"icon" validate:"omitempty,max=64"`
	CoverImage  string `json:"cover_image" validate:"omitempty,url"`
	Category    string `json:"category" validate:"omitempty,max=64"`
	SortOrder   int    `json:"sort_order" validate:"gte=0"`
}

// CauseUpdateRequest changes a cause. Nil fields are left untouched.
type CauseUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=120"`
	Description *string `json:"description" validate:"omitempty,min=20,max=5000"`
	Icon        *string `json:"icon" validate:"omitempty,max=64"`
	CoverImage  *string `json:"cover_image" validate:"omitempty,url"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
}

// CauseListRequest filters cause listings.
type CauseListRequest struct {
	Page       int
	PageSize   int
	Status     string
	Category   string
	Search     string
	ActiveOnly bool
}

// CauseListResponse wraps a page of causes.
type CauseListResponse struct {
	Items      []models.Cause `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}
