package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/repository"
)

var (
	// ErrWaqfNotFound indicates the waqf does not exist.
	ErrWaqfNotFound = errors.New("waqf not found")
	// ErrWaqfArchived indicates the waqf can no longer change.
	ErrWaqfArchived = errors.New("waqf is archived")
	// ErrWaqfInactive indicates the waqf does not accept contributions.
	ErrWaqfInactive = errors.New("waqf is not active")
	// ErrWaqfPermissionDenied indicates the actor may not change the waqf.
	ErrWaqfPermissionDenied = errors.New("waqf permission denied")
	// ErrWaqfValidation indicates the waqf failed backend validation.
	ErrWaqfValidation = errors.New("waqf validation failed")
)

// WaqfService manages waqf profiles.
type WaqfService interface {
	Create(ctx context.Context, req dto.WaqfCreateRequest, actorID string) (models.WaqfProfile, error)
	Get(ctx context.Context, id string) (models.WaqfProfile, error)
	Update(ctx context.Context, id string, req dto.WaqfUpdateRequest, actorID string) (models.WaqfProfile, error)
	List(ctx context.Context, req dto.WaqfListRequest) (dto.WaqfListResponse, error)
	Activate(ctx context.Context, id, actorID string) (models.WaqfProfile, error)
	Deactivate(ctx context.Context, id, actorID string) (models.WaqfProfile, error)
	Archive(ctx context.Context, id, actorID string) (models.WaqfProfile, error)
	RecordInvestmentReturn(ctx context.Context, id string, req dto.InvestmentReturnRequest, actorID string) (models.WaqfProfile, error)
}

type waqfService struct {
	repo      repository.WaqfRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWaqfService constructs the waqf service.
func NewWaqfService(repo repository.WaqfRepository, validate *validator.Validate, logger zerolog.Logger) WaqfService {
	return &waqfService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "waqf_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *waqfService) Create(ctx context.Context, req dto.WaqfCreateRequest, actorID string) (models.WaqfProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.WaqfProfile{}, err
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return models.WaqfProfile{}, fmt.Errorf("%w: actor is required", ErrWaqfPermissionDenied)
	}

	now := s.now()
	selected := uniqueStrings(req.SelectedCauses)
	allocation := req.CauseAllocation
	if len(allocation) == 0 && len(selected) > 0 {
		allocation = evenAllocation(selected)
	}

	waqf := models.WaqfProfile{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		Donor:           donorFromRequest(req.Donor),
		InitialCapital:  req.InitialCapital,
		SelectedCauses:  selected,
		CauseAllocation: allocation,
		SupportedCauses: append([]string(nil), selected...),
		WaqfAssets:      req.WaqfAssets,
		Financial: models.FinancialMetrics{
			TotalDonations:    req.InitialCapital,
			CurrentBalance:    req.InitialCapital,
			InvestmentReturns: []models.InvestmentReturn{},
			CauseAllocations:  map[string]float64{},
		},
		ReportingPreferences: reportingFromRequest(req.ReportingPreferences, models.ReportingPreferences{
			Frequency:      "monthly",
			ReportTypes:    []string{"financial", "impact"},
			DeliveryMethod: "email",
		}),
		Notifications: models.NotificationPreferences{
			ContributionReminders: true,
			ImpactReports:         true,
			DistributionUpdates:   true,
		},
		Status:    models.WaqfStatusActive,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Notifications != nil {
		waqf.Notifications = *req.Notifications
	}
	if waqf.WaqfAssets == nil {
		waqf.WaqfAssets = []models.WaqfAsset{}
	}

	if err := s.repo.Put(docstore.WithCaller(ctx, actorID), waqf); err != nil {
		return models.WaqfProfile{}, mapWaqfStoreError(err)
	}

	s.logger.Info().Str("waqf_id", waqf.ID).Str("created_by", actorID).Str("donor", maskEmail(waqf.Donor.Email)).Msg("waqf created")
	return waqf, nil
}

func (s *waqfService) Get(ctx context.Context, id string) (models.WaqfProfile, error) {
	waqf, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.WaqfProfile{}, ErrWaqfNotFound
		}
		return models.WaqfProfile{}, fmt.Errorf("get waqf %s: %w", id, err)
	}
	return waqf, nil
}

func (s *waqfService) Update(ctx context.Context, id string, req dto.WaqfUpdateRequest, actorID string) (models.WaqfProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.WaqfProfile{}, err
	}

	return s.mutate(ctx, id, actorID, func(waqf *models.WaqfProfile) error {
		if req.Name != nil {
			waqf.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			waqf.Description = strings.TrimSpace(*req.Description)
		}
		if req.Donor != nil {
			if err := s.validator.Struct(req.Donor); err != nil {
				return err
			}
			waqf.Donor = donorFromRequest(*req.Donor)
		}
		if req.SelectedCauses != nil {
			waqf.SelectedCauses = uniqueStrings(*req.SelectedCauses)
			waqf.SupportedCauses = mergeStrings(waqf.SupportedCauses, waqf.SelectedCauses)
			if req.CauseAllocation == nil {
				waqf.CauseAllocation = evenAllocation(waqf.SelectedCauses)
			}
		}
		if req.CauseAllocation != nil {
			waqf.CauseAllocation = req.CauseAllocation
		}
		if req.WaqfAssets != nil {
			waqf.WaqfAssets = *req.WaqfAssets
		}
		if req.ReportingPreferences != nil {
			waqf.ReportingPreferences = reportingFromRequest(req.ReportingPreferences, waqf.ReportingPreferences)
		}
		if req.Notifications != nil {
			waqf.Notifications = *req.Notifications
		}
		if req.ImpactMetrics != nil {
			waqf.Financial.ImpactMetrics = *req.ImpactMetrics
		}
		return nil
	})
}

func (s *waqfService) List(ctx context.Context, req dto.WaqfListRequest) (dto.WaqfListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.WaqfListResponse{}, err
	}

	page := normalizePage(req.Page)
	pageSize := clampPageSize(req.PageSize)
	orderBy := docstore.OrderByCreatedAt
	if req.SortBy == "updated_at" {
		orderBy = docstore.OrderByUpdatedAt
	}

	items, total, err := s.repo.List(ctx, repository.WaqfFilter{
		Page:      page,
		PageSize:  pageSize,
		OrderBy:   orderBy,
		Desc:      req.SortOrder != "asc",
		CreatedBy: strings.TrimSpace(req.CreatedBy),
	})
	if err != nil {
		return dto.WaqfListResponse{}, err
	}

	return dto.WaqfListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *waqfService) Activate(ctx context.Context, id, actorID string) (models.WaqfProfile, error) {
	return s.setStatus(ctx, id, actorID, models.WaqfStatusActive)
}

func (s *waqfService) Deactivate(ctx context.Context, id, actorID string) (models.WaqfProfile, error) {
	return s.setStatus(ctx, id, actorID, models.WaqfStatusInactive)
}

func (s *waqfService) Archive(ctx context.Context, id, actorID string) (models.WaqfProfile, error) {
	return s.setStatus(ctx, id, actorID, models.WaqfStatusArchived)
}

func (s *waqfService) RecordInvestmentReturn(ctx context.Context, id string, req dto.InvestmentReturnRequest, actorID string) (models.WaqfProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.WaqfProfile{}, err
	}

	return s.mutate(ctx, id, actorID, func(waqf *models.WaqfProfile) error {
		waqf.Financial.InvestmentReturns = append(waqf.Financial.InvestmentReturns, models.InvestmentReturn{
			Period:     strings.TrimSpace(req.Period),
			Amount:     req.Amount,
			Rate:       req.Rate,
			RecordedAt: s.now(),
		})
		waqf.Financial.TotalInvestmentReturn += req.Amount
		waqf.Financial.CurrentBalance += req.Amount
		waqf.Financial.GrowthRate = growthRate(waqf.Financial)
		return nil
	})
}

func (s *waqfService) setStatus(ctx context.Context, id, actorID string, status models.WaqfStatus) (models.WaqfProfile, error) {
	return s.mutate(ctx, id, actorID, func(waqf *models.WaqfProfile) error {
		waqf.Status = status
		return nil
	})
}

// mutate loads the waqf, applies change and writes it back as actorID.
func (s *waqfService) mutate(ctx context.Context, id, actorID string, change func(*models.WaqfProfile) error) (models.WaqfProfile, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return models.WaqfProfile{}, fmt.Errorf("%w: actor is required", ErrWaqfPermissionDenied)
	}

	waqf, err := s.Get(ctx, id)
	if err != nil {
		return models.WaqfProfile{}, err
	}
	if waqf.Status == models.WaqfStatusArchived {
		return models.WaqfProfile{}, ErrWaqfArchived
	}

	if err := change(&waqf); err != nil {
		return models.WaqfProfile{}, err
	}
	waqf.UpdatedAt = s.now()

	if err := s.repo.Put(docstore.WithCaller(ctx, actorID), waqf); err != nil {
		return models.WaqfProfile{}, mapWaqfStoreError(err)
	}
	return waqf, nil
}

func mapWaqfStoreError(err error) error {
	return mapStoreError(err, ErrWaqfPermissionDenied, ErrWaqfValidation, "persist waqf")
}

func donorFromRequest(req dto.DonorRequest) models.DonorProfile {
	return models.DonorProfile{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}
}

func reportingFromRequest(req *dto.ReportingPreferencesRequest, fallback models.ReportingPreferences) models.ReportingPreferences {
	if req == nil {
		return fallback
	}
	prefs := fallback
	if req.Frequency != "" {
		prefs.Frequency = req.Frequency
	}
	if req.ReportTypes != nil {
		prefs.ReportTypes = req.ReportTypes
	}
	if req.DeliveryMethod != "" {
		prefs.DeliveryMethod = req.DeliveryMethod
	}
	return prefs
}

func evenAllocation(causes []string) map[string]float64 {
	if len(causes) == 0 {
		return nil
	}
	share := 100 / float64(len(causes))
	allocation := make(map[string]float64, len(causes))
	for _, cause := range causes {
		allocation[cause] = share
	}
	return allocation
}

func growthRate(f models.FinancialMetrics) float64 {
	if f.TotalDonations <= 0 {
		return 0
	}
	rate := f.TotalInvestmentReturn / f.TotalDonations * 100
	return math.Max(-100, math.Min(1000, rate))
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func mergeStrings(existing, added []string) []string {
	return uniqueStrings(append(append([]string(nil), existing...), added...))
}
