package models

import "time"

// WaqfStatus is the lifecycle state of a waqf.
type WaqfStatus string

const (
	WaqfStatusActive   WaqfStatus = "active"
	WaqfStatusInactive WaqfStatus = "inactive"
	WaqfStatusArchived WaqfStatus = "archived"
)

// DonorProfile identifies the founder of a waqf.
type DonorProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// InvestmentReturn records the yield of the endowment for one period.
type InvestmentReturn struct {
	Period     string    `json:"period"`
	Amount     float64   `json:"amount"`
	Rate       float64   `json:"rate"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ImpactMetrics summarises what distributions achieved.
type ImpactMetrics struct {
	BeneficiariesSupported int     `json:"beneficiaries_supported"`
	ProjectsCompleted      int     `json:"projects_completed"`
	CompletionRate         float64 `json:"completion_rate"`
}

// FinancialMetrics is the running financial aggregate of a waqf.
type FinancialMetrics struct {
	TotalDonations        float64            `json:"total_donations"`
	TotalDistributed      float64            `json:"total_distributed"`
	CurrentBalance        float64            `json:"current_balance"`
	InvestmentReturns     []InvestmentReturn `json:"investment_returns"`
	TotalInvestmentReturn float64            `json:"total_investment_return"`
	GrowthRate            float64            `json:"growth_rate"`
	CauseAllocations      map[string]float64 `json:"cause_allocations"`
	ImpactMetrics         ImpactMetrics      `json:"impact_metrics"`
}

// WaqfAsset is a non-cash holding of the endowment.
type WaqfAsset struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
}

// ReportingPreferences controls the reports sent to the donor.
type ReportingPreferences struct {
	Frequency      string   `json:"frequency"`
	ReportTypes    []string `json:"report_types"`
	DeliveryMethod string   `json:"delivery_method"`
}

// NotificationPreferences controls donor notifications.
type NotificationPreferences struct {
	ContributionReminders bool `json:"contribution_reminders"`
	ImpactReports         bool `json:"impact_reports"`
	DistributionUpdates   bool `json:"distribution_updates"`
}

// WaqfProfile is a perpetual endowment created by a donor.
type WaqfProfile struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	Description          string                  `json:"description"`
	Donor                DonorProfile            `json:"donor"`
	InitialCapital       float64                 `json:"initial_capital"`
	SelectedCauses       []string                `json:"selected_causes"`
	CauseAllocation      map[string]float64      `json:"cause_allocation,omitempty"`
	SupportedCauses      []string                `json:"supported_causes"`
	WaqfAssets           []WaqfAsset             `json:"waqf_assets"`
	Financial            FinancialMetrics        `json:"financial"`
	ReportingPreferences ReportingPreferences    `json:"reporting_preferences"`
	Notifications        NotificationPreferences `json:"notifications"`
	Status               WaqfStatus              `json:"status"`
	CreatedBy            string                  `json:"created_by"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}
