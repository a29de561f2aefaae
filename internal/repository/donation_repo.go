package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
)

// DonationRepository persists donations.
type DonationRepository interface {
	Put(ctx context.Context, donation models.Donation) error
	ListByWaqf(ctx context.Context, waqfID string) ([]models.Donation, error)
}

// AllocationRepository persists allocation groups.
type AllocationRepository interface {
	Put(ctx context.Context, group models.AllocationGroup) error
	ListByWaqf(ctx context.Context, waqfID string) ([]models.AllocationGroup, error)
}

type donationRepository struct {
	store docstore.Store
}

type allocationRepository struct {
	store docstore.Store
}

// NewDonationRepository constructs the donation repository.
func NewDonationRepository(store docstore.Store) DonationRepository {
	return &donationRepository{store: store}
}

// NewAllocationRepository constructs the allocation repository.
func NewAllocationRepository(store docstore.Store) AllocationRepository {
	return &allocationRepository{store: store}
}

func (r *donationRepository) Put(ctx context.Context, donation models.Donation) error {
	return save(ctx, r.store, models.CollectionDonations, donation.ID, donation, docMeta{
		description: waqfDescription(donation.WaqfID),
		owner:       donation.DonorID,
	})
}

func (r *donationRepository) ListByWaqf(ctx context.Context, waqfID string) ([]models.Donation, error) {
	result, err := r.store.List(ctx, models.CollectionDonations, docstore.ListOptions{
		Description: waqfDescription(waqfID),
		OrderBy:     docstore.OrderByCreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("list donations for %s: %w", waqfID, err)
	}
	return decodeAll[models.Donation](result.Items)
}

func (r *allocationRepository) Put(ctx context.Context, group models.AllocationGroup) error {
	return save(ctx, r.store, models.CollectionAllocations, group.ID, group, docMeta{
		description: waqfDescription(group.WaqfID),
		owner:       group.AllocatedBy,
	})
}

func (r *allocationRepository) ListByWaqf(ctx context.Context, waqfID string) ([]models.AllocationGroup, error) {
	result, err := r.store.List(ctx, models.CollectionAllocations, docstore.ListOptions{
		Description: waqfDescription(waqfID),
		OrderBy:     docstore.OrderByCreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("list allocations for %s: %w", waqfID, err)
	}
	return decodeAll[models.AllocationGroup](result.Items)
}

func waqfDescription(waqfID string) string {
	return "waqf:" + waqfID
}
