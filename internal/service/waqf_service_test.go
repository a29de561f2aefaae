package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/repository"
)

func validWaqfRequest() dto.WaqfCreateRequest {
	return dto.WaqfCreateRequest{
		Name:           "Family Education Waqf",
		Description:    "Funds scholarships for students in the village school.",
		Donor:          dto.DonorRequest{Name: "Aisha", Email: "Aisha@Example.com"},
		InitialCapital: 1000,
		SelectedCauses: []string{"edu", "health", "edu"},
	}
}

func newTestWaqfService(t *testing.T) (WaqfService, docstore.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewWaqfService(repository.NewWaqfRepository(store), testValidator(), testLogger()), store
}

func TestWaqfServiceCreate(t *testing.T) {
	svc, _ := newTestWaqfService(t)

	waqf, err := svc.Create(context.Background(), validWaqfRequest(), "donor-1")
	require.NoError(t, err)
	require.NotEmpty(t, waqf.ID)
	require.Equal(t, models.WaqfStatusActive, waqf.Status)
	require.Equal(t, "donor-1", waqf.CreatedBy)
	require.Equal(t, "aisha@example.com", waqf.Donor.Email)
	require.Equal(t, []string{"edu", "health"}, waqf.SelectedCauses)
	require.InDelta(t, 50, waqf.CauseAllocation["edu"], 0.001)
	require.Equal(t, 1000.0, waqf.Financial.CurrentBalance)
	require.Equal(t, 1000.0, waqf.Financial.TotalDonations)

	stored, err := svc.Get(context.Background(), waqf.ID)
	require.NoError(t, err)
	require.Equal(t, waqf.Name, stored.Name)
}

func TestWaqfServiceCreateValidates(t *testing.T) {
	svc, _ := newTestWaqfService(t)

	req := validWaqfRequest()
	req.Donor.Email = "not-an-email"
	_, err := svc.Create(context.Background(), req, "donor-1")
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestWaqfServiceRejectsAllocationNotSummingToHundred(t *testing.T) {
	svc, _ := newTestWaqfService(t)

	req := validWaqfRequest()
	req.CauseAllocation = map[string]float64{"edu": 60, "health": 30}
	_, err := svc.Create(context.Background(), req, "donor-1")
	require.ErrorIs(t, err, ErrWaqfValidation)
}

func TestWaqfServiceUpdateByStrangerIsDenied(t *testing.T) {
	svc, _ := newTestWaqfService(t)
	ctx := context.Background()

	waqf, err := svc.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	name := "Hijacked waqf"
	_, err = svc.Update(ctx, waqf.ID, dto.WaqfUpdateRequest{Name: &name}, "stranger")
	require.ErrorIs(t, err, ErrWaqfPermissionDenied)

	updated, err := svc.Update(ctx, waqf.ID, dto.WaqfUpdateRequest{Name: &name}, "donor-1")
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
}

func TestWaqfServiceAdminCanUpdateAnyWaqf(t *testing.T) {
	svc, store := newTestWaqfService(t)
	seedSuperAdmin(t, store, "root")
	ctx := context.Background()

	waqf, err := svc.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(ctx, waqf.ID, "root")
	require.NoError(t, err)
	require.Equal(t, models.WaqfStatusInactive, deactivated.Status)
}

func TestWaqfServiceArchivedIsReadOnly(t *testing.T) {
	svc, _ := newTestWaqfService(t)
	ctx := context.Background()

	waqf, err := svc.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, waqf.ID, "donor-1")
	require.NoError(t, err)
	require.Equal(t, models.WaqfStatusArchived, archived.Status)

	_, err = svc.Activate(ctx, waqf.ID, "donor-1")
	require.ErrorIs(t, err, ErrWaqfArchived)
}

func TestWaqfServiceListPaginatesAndFiltersOwner(t *testing.T) {
	svc, _ := newTestWaqfService(t)
	ctx := context.Background()

	for _, owner := range []string{"donor-1", "donor-1", "donor-2"} {
		_, err := svc.Create(ctx, validWaqfRequest(), owner)
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, dto.WaqfListRequest{Page: 1, PageSize: 1, CreatedBy: "donor-1"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(2), resp.Pagination.TotalItems)
	require.Equal(t, 2, resp.Pagination.TotalPages)

	_, err = svc.List(ctx, dto.WaqfListRequest{SortBy: "name"})
	require.Error(t, err)
}

func TestWaqfServiceRecordInvestmentReturn(t *testing.T) {
	svc, _ := newTestWaqfService(t)
	ctx := context.Background()

	waqf, err := svc.Create(ctx, validWaqfRequest(), "donor-1")
	require.NoError(t, err)

	updated, err := svc.RecordInvestmentReturn(ctx, waqf.ID, dto.InvestmentReturnRequest{Period: "2024-Q1", Amount: 50, Rate: 5}, "donor-1")
	require.NoError(t, err)
	require.Len(t, updated.Financial.InvestmentReturns, 1)
	require.Equal(t, 1050.0, updated.Financial.CurrentBalance)
	require.InDelta(t, 5, updated.Financial.GrowthRate, 0.001)
}

func TestWaqfServiceGetMissing(t *testing.T) {
	svc, _ := newTestWaqfService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrWaqfNotFound)
}
