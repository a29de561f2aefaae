package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/repository"
)

type invalidatorStub struct {
	waqfIDs []string
}

func (i *invalidatorStub) Invalidate(ctx context.Context, waqfID string) {
	i.waqfIDs = append(i.waqfIDs, waqfID)
}

type ledgerFixture struct {
	waqfs       WaqfService
	donations   DonationService
	allocations AllocationService
	causes      repository.CauseRepository
	waqfRepo    repository.WaqfRepository
	invalidator *invalidatorStub
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	t.Helper()
	store := newTestStore(t)
	seedSuperAdmin(t, store, "root")

	waqfRepo := repository.NewWaqfRepository(store)
	causeRepo := repository.NewCauseRepository(store)
	invalidator := &invalidatorStub{}
	return ledgerFixture{
		waqfs:       NewWaqfService(waqfRepo, testValidator(), testLogger()),
		donations:   NewDonationService(repository.NewDonationRepository(store), waqfRepo, invalidator, testValidator(), testLogger()),
		allocations: NewAllocationService(repository.NewAllocationRepository(store), waqfRepo, causeRepo, invalidator, testValidator(), testLogger()),
		causes:      causeRepo,
		waqfRepo:    waqfRepo,
		invalidator: invalidator,
	}
}

func TestDonationServiceRecordUpdatesTotals(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	waqf, err := f.waqfs.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	donation, err := f.donations.Record(ctx, waqf.ID, dto.DonationRequest{Amount: 250, Currency: "usd"}, "donor-1")
	require.NoError(t, err)
	require.Equal(t, models.DonationStatusCompleted, donation.Status)
	require.Equal(t, "USD", donation.Currency)
	require.Equal(t, "donor-1", donation.DonorID)
	require.WithinDuration(t, time.Now(), donation.Date, time.Minute)

	stored, err := f.waqfRepo.Get(ctx, waqf.ID)
	require.NoError(t, err)
	require.Equal(t, 1250.0, stored.Financial.TotalDonations)
	require.Equal(t, 1250.0, stored.Financial.CurrentBalance)
	require.Equal(t, []string{waqf.ID}, f.invalidator.waqfIDs)

	listed, err := f.donations.ListByWaqf(ctx, waqf.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestDonationServiceRejectsInactiveWaqf(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	waqf, err := f.waqfs.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)
	_, err = f.waqfs.Deactivate(ctx, waqf.ID, "donor-1")
	require.NoError(t, err)

	_, err = f.donations.Record(ctx, waqf.ID, dto.DonationRequest{Amount: 10}, "donor-1")
	require.ErrorIs(t, err, ErrWaqfInactive)

	_, err = f.donations.Record(ctx, "missing", dto.DonationRequest{Amount: 10}, "donor-1")
	require.ErrorIs(t, err, ErrWaqfNotFound)
}

func TestDonationServiceRecordBatch(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	waqf, err := f.waqfs.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	recorded, err := f.donations.RecordBatch(ctx, waqf.ID, []dto.DonationRequest{{Amount: 10}, {Amount: 15}}, "donor-1")
	require.NoError(t, err)
	require.Len(t, recorded, 2)

	stored, err := f.waqfRepo.Get(ctx, waqf.ID)
	require.NoError(t, err)
	require.Equal(t, 1025.0, stored.Financial.CurrentBalance)

	_, err = f.donations.RecordBatch(ctx, waqf.ID, nil, "donor-1")
	require.ErrorIs(t, err, ErrDonationValidation)
}

func TestAllocationServiceAllocatesAndCreditsCauses(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	waqf, err := f.waqfs.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, f.causes.Put(docstore.WithCaller(ctx, "root"), models.Cause{
		ID:          "edu",
		Name:        "Education",
		Description: "Scholarships for students in need.",
		Category:    "education",
		Status:      models.CauseStatusApproved,
		IsActive:    true,
		ApprovedBy:  "root",
		ApprovedAt:  &now,
	}))

	group, err := f.allocations.Allocate(ctx, waqf.ID, dto.AllocationRequest{Allocations: []dto.AllocationLine{
		{CauseID: "edu", Amount: 300, Rationale: "term fees"},
		{CauseID: "edu", Amount: 100},
	}}, "root")
	require.NoError(t, err)
	require.Equal(t, 400.0, group.TotalAmount)

	stored, err := f.waqfRepo.Get(ctx, waqf.ID)
	require.NoError(t, err)
	require.Equal(t, 600.0, stored.Financial.CurrentBalance)
	require.Equal(t, 400.0, stored.Financial.TotalDistributed)
	require.Equal(t, 400.0, stored.Financial.CauseAllocations["edu"])

	cause, err := f.causes.Get(ctx, "edu")
	require.NoError(t, err)
	require.Equal(t, 400.0, cause.FundsRaised)

	groups, err := f.allocations.ListByWaqf(ctx, waqf.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestAllocationServiceRejectsOverdraw(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	waqf, err := f.waqfs.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	_, err = f.allocations.Allocate(ctx, waqf.ID, dto.AllocationRequest{Allocations: []dto.AllocationLine{
		{CauseID: "edu", Amount: 5000},
	}}, "root")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	groups, err := f.allocations.ListByWaqf(ctx, waqf.ID)
	require.NoError(t, err)
	require.Empty(t, groups)
}
