package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/observability"
	"github.com/noah-isme/waqf-api/internal/repository"
)

const balanceTolerance = 0.01

var (
	// ErrInsufficientBalance indicates the allocation exceeds the waqf balance.
	ErrInsufficientBalance = errors.New("allocation exceeds current balance")
	// ErrAllocationValidation indicates the allocation was rejected by the backend.
	ErrAllocationValidation = errors.New("allocation validation failed")
)

// AllocationService distributes waqf funds across causes.
type AllocationService interface {
	Allocate(ctx context.Context, waqfID string, req dto.AllocationRequest, actorID string) (models.AllocationGroup, error)
	ListByWaqf(ctx context.Context, waqfID string) ([]models.AllocationGroup, error)
}

type allocationService struct {
	allocations repository.AllocationRepository
	waqfs       repository.WaqfRepository
	causes      repository.CauseRepository
	analytics   AnalyticsInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAllocationService constructs the allocation service. analytics may be nil.
func NewAllocationService(allocations repository.AllocationRepository, waqfs repository.WaqfRepository, causes repository.CauseRepository, analytics AnalyticsInvalidator, validate *validator.Validate, logger zerolog.Logger) AllocationService {
	return &allocationService{
		allocations: allocations,
		waqfs:       waqfs,
		causes:      causes,
		analytics:   analytics,
		validator:   validate,
		logger:      logger.With().Str("component", "allocation_service").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *allocationService) Allocate(ctx context.Context, waqfID string, req dto.AllocationRequest, actorID string) (models.AllocationGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.AllocationGroup{}, err
	}

	waqf, err := s.waqfs.Get(ctx, strings.TrimSpace(waqfID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.AllocationGroup{}, ErrWaqfNotFound
		}
		return models.AllocationGroup{}, err
	}
	if waqf.Status == models.WaqfStatusArchived {
		return models.AllocationGroup{}, ErrWaqfArchived
	}

	group := models.AllocationGroup{
		ID:          uuid.NewString(),
		WaqfID:      waqf.ID,
		Allocations: make([]models.CauseAllocation, 0, len(req.Allocations)),
		AllocatedAt: s.now(),
		AllocatedBy: actorID,
	}
	for _, line := range req.Allocations {
		group.Allocations = append(group.Allocations, models.CauseAllocation{
			CauseID:   strings.TrimSpace(line.CauseID),
			Amount:    line.Amount,
			Rationale: strings.TrimSpace(line.Rationale),
		})
		group.TotalAmount += line.Amount
	}

	if group.TotalAmount > waqf.Financial.CurrentBalance+balanceTolerance {
		return models.AllocationGroup{}, fmt.Errorf("%w: requested %.2f, available %.2f", ErrInsufficientBalance, group.TotalAmount, waqf.Financial.CurrentBalance)
	}

	callerCtx := docstore.WithCaller(ctx, actorID)
	if err := s.allocations.Put(callerCtx, group); err != nil {
		return models.AllocationGroup{}, mapStoreError(err, ErrWaqfPermissionDenied, ErrAllocationValidation, "record allocation")
	}
	observability.Allocations().Inc()

	if waqf.Financial.CauseAllocations == nil {
		waqf.Financial.CauseAllocations = map[string]float64{}
	}
	for _, allocation := range group.Allocations {
		waqf.Financial.CauseAllocations[allocation.CauseID] += allocation.Amount
	}
	waqf.Financial.TotalDistributed += group.TotalAmount
	waqf.Financial.CurrentBalance -= group.TotalAmount
	if waqf.Financial.CurrentBalance < 0 {
		waqf.Financial.CurrentBalance = 0
	}
	waqf.SupportedCauses = mergeStrings(waqf.SupportedCauses, allocationCauses(group))
	waqf.UpdatedAt = s.now()
	if err := s.waqfs.Put(callerCtx, waqf); err != nil {
		s.logger.Error().Err(err).Str("waqf_id", waqf.ID).Str("allocation_id", group.ID).Msg("failed to update waqf totals after allocation")
	}

	s.creditCauses(callerCtx, group)
	if s.analytics != nil {
		s.analytics.Invalidate(ctx, waqf.ID)
	}

	return group, nil
}

func (s *allocationService) ListByWaqf(ctx context.Context, waqfID string) ([]models.AllocationGroup, error) {
	return s.allocations.ListByWaqf(ctx, strings.TrimSpace(waqfID))
}

// creditCauses adds the allocated amounts to each cause's fundsRaised, one write per cause.
func (s *allocationService) creditCauses(ctx context.Context, group models.AllocationGroup) {
	totals := make(map[string]float64, len(group.Allocations))
	for _, allocation := range group.Allocations {
		totals[allocation.CauseID] += allocation.Amount
	}

	for causeID, amount := range totals {
		cause, err := s.causes.Get(ctx, causeID)
		if err != nil {
			s.logger.Warn().Err(err).Str("cause_id", causeID).Msg("cause not credited")
			continue
		}
		cause.FundsRaised += amount
		cause.UpdatedAt = s.now()
		if err := s.causes.Put(ctx, cause); err != nil {
			s.logger.Warn().Err(err).Str("cause_id", causeID).Msg("cause not credited")
		}
	}
}

func allocationCauses(group models.AllocationGroup) []string {
	ids := make([]string, 0, len(group.Allocations))
	for _, allocation := range group.Allocations {
		ids = append(ids, allocation.CauseID)
	}
	return ids
}
