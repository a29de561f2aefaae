package models

import "time"

// DonationStatus is the settlement state of a donation.
type DonationStatus string

const (
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusFailed    DonationStatus = "failed"
)

// Donation is a contribution made to a waqf.
type Donation struct {
	ID        string         `json:"id"`
	WaqfID    string         `json:"waqf_id"`
	DonorID   string         `json:"donor_id,omitempty"`
	Amount    float64        `json:"amount"`
	Currency  string         `json:"currency"`
	Date      time.Time      `json:"date"`
	Status    DonationStatus `json:"status"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CauseAllocation assigns part of a distribution to a cause.
type CauseAllocation struct {
	CauseID   string  `json:"cause_id"`
	Amount    float64 `json:"amount"`
	Rationale string  `json:"rationale,omitempty"`
}

// AllocationGroup is one distribution of waqf returns across causes.
type AllocationGroup struct {
	ID          string            `json:"id"`
	WaqfID      string            `json:"waqf_id"`
	Allocations []CauseAllocation `json:"allocations"`
	TotalAmount float64           `json:"total_amount"`
	AllocatedAt time.Time         `json:"allocated_at"`
	AllocatedBy string            `json:"allocated_by,omitempty"`
}
