package dto

import (
	"time"

	"github.com/noah-isme/waqf-api/internal/models"
)

// DonorRequest describes the founder of a waqf.
type DonorRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Address string `json:"address" validate:"omitempty,max=255"`
}

// WaqfCreateRequest is the payload for creating a waqf.
type WaqfCreateRequest struct {
	Name                 string                          `json:"name" validate:"required,min=3,max=120"`
	Description          string                          `json:"description" validate:"required,min=20,max=5000"`
	Donor                DonorRequest                    `json:"donor" validate:"required"`
	InitialCapital       float64                         `json:"initial_capital" validate:"gt=0"`
	SelectedCauses       []string                        `json:"selected_causes" validate:"omitempty,dive,required"`
	CauseAllocation      map[string]float64              `json:"cause_allocation" validate:"omitempty,dive,keys,required,endkeys,gte=0,lte=100"`
	WaqfAssets           []models.WaqfAsset              `json:"waqf_assets"`
	ReportingPreferences *ReportingPreferencesRequest    `json:"reporting_preferences"`
	Notifications        *models.NotificationPreferences `json:"notifications"`
}

// ReportingPreferencesRequest configures donor reports.
type ReportingPreferencesRequest struct {
	Frequency      string   `json:"frequency" validate:"omitempty,oneof=monthly quarterly yearly"`
	ReportTypes    []string `json:"report_types" validate:"omitempty,dive,required"`
	DeliveryMethod string   `json:"delivery_method" validate:"omitempty,oneof=email dashboard both"`
}

// WaqfUpdateRequest merges changes into a waqf. Nil fields are left untouched.
type WaqfUpdateRequest struct {
	Name                 *string                         `json:"name" validate:"omitempty,min=3,max=120"`
	Description          *string                         `json:"description" validate:"omitempty,min=20,max=5000"`
	Donor                *DonorRequest                   `json:"donor"`
	SelectedCauses       *[]string                       `json:"selected_causes"`
	CauseAllocation      map[string]float64              `json:"cause_allocation" validate:"omitempty,dive,keys,required,endkeys,gte=0,lte=100"`
	WaqfAssets           *[]models.WaqfAsset             `json:"waqf_assets"`
	ReportingPreferences *ReportingPreferencesRequest    `json:"reporting_preferences"`
	Notifications        *models.NotificationPreferences `json:"notifications"`
	ImpactMetrics        *models.ImpactMetrics           `json:"impact_metrics"`
}

// WaqfListRequest pages and orders waqf listings.
type WaqfListRequest struct {
	Page      int    `validate:"gte=0"`
	PageSize  int    `validate:"gte=0,lte=100"`
	SortBy    string `validate:"omitempty,oneof=created_at updated_at"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
	CreatedBy string
}

// WaqfListResponse wraps a page of waqfs.
type WaqfListResponse struct {
	Items      []models.WaqfProfile `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// DonationRequest records a donation.
type DonationRequest struct {
	DonorID  string     `json:"donor_id" validate:"omitempty,max=128"`
	Amount   float64    `json:"amount" validate:"gt=0"`
	Currency string     `json:"currency" validate:"omitempty,len=3,alpha"`
	Date     *time.Time `json:"date"`
	Note     string     `json:"note" validate:"omitempty,max=500"`
}

// AllocationLine assigns an amount to one cause.
type AllocationLine struct {
	CauseID   string  `json:"cause_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Rationale string  `json:"rationale" validate:"omitempty,max=500"`
}

// AllocationRequest distributes returns across causes.
type AllocationRequest struct {
	Allocations []AllocationLine `json:"allocations" validate:"required,min=1,dive"`
}

// InvestmentReturnRequest records the yield of a period.
type InvestmentReturnRequest struct {
	Period string  `json:"period" validate:"required,max=16"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Rate   float64 `json:"rate" validate:"gte=-100,lte=1000"`
}

// WaqfPerformance summarises donations against allocations.
type WaqfPerformance struct {
	WaqfID           string  `json:"waqf_id"`
	TotalDonations   float64 `json:"total_donations"`
	TotalAllocations float64 `json:"total_allocations"`
	NetGrowth        float64 `json:"net_growth"`
	DonationCount    int     `json:"donation_count"`
	AllocationCount  int     `json:"allocation_count"`
}

// PeriodBucket aggregates activity for one period key.
type PeriodBucket struct {
	Period          string  `json:"period"`
	Donations       float64 `json:"donations"`
	Allocations     float64 `json:"allocations"`
	DonationCount   int     `json:"donation_count"`
	AllocationCount int     `json:"allocation_count"`
	Net             float64 `json:"net"`
}

// WaqfAnalytics groups donations and allocations by period.
type WaqfAnalytics struct {
	WaqfID             string         `json:"waqf_id"`
	Period             string         `json:"period"`
	Buckets            []PeriodBucket `json:"buckets"`
	DonationGrowthRate float64        `json:"donation_growth_rate"`
}

// WaqfGrowth reports net growth in absolute and relative terms.
type WaqfGrowth struct {
	Absolute float64 `json:"absolute"`
	Relative float64 `json:"relative"`
}
