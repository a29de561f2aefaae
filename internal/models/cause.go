package models

import "time"

// CauseStatus is the moderation state of a cause.
type CauseStatus string

const (
	CauseStatusPending  CauseStatus = "pending"
	CauseStatusApproved CauseStatus = "approved"
	CauseStatusRejected CauseStatus = "rejected"
)

// Valid reports whether s is a known cause status.
func (s CauseStatus) Valid() bool {
	switch s {
	case CauseStatusPending, CauseStatusApproved, CauseStatusRejected:
		return true
	}
	return false
}

// DefaultCauseCategory is used when no category is supplied.
const DefaultCauseCategory = "other"

var causeCategories = map[string]struct{}{
	"education":             {},
	"healthcare":            {},
	"poverty_alleviation":   {},
	"disaster_relief":       {},
	"environmental":         {},
	"community_development": {},
	"orphan_care":           {},
	"elder_care":            {},
	"humanitarian_aid":      {},
	"religious_services":    {},
	"other":                 {},
}

// IsCauseCategory reports whether category is in the whitelist.
func IsCauseCategory(category string) bool {
	_, ok := causeCategories[category]
	return ok
}

// Cause is a charitable purpose that waqf returns can be allocated to.
type Cause struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	CoverImage  string      `json:"cover_image,omitempty"`
	Category    string      `json:"category"`
	IsActive    bool        `json:"is_active"`
	Status      CauseStatus `json:"status"`
	SortOrder   int         `json:"sort_order"`
	Followers   int         `json:"followers"`
	FundsRaised float64     `json:"funds_raised"`
	CreatedBy   string      `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ApprovedBy  string      `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time  `json:"approved_at,omitempty"`
}
