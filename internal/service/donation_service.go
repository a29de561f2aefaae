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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/observability"
	"github.com/noah-isme/waqf-api/internal/repository"
)

const defaultCurrency = "USD"

// ErrDonationValidation indicates the donation was rejected by the backend.
var ErrDonationValidation = errors.New("donation validation failed")

// AnalyticsInvalidator drops cached analytics for a waqf after its ledger changes.
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context, waqfID string)
}

// DonationService records contributions to waqfs.
type DonationService interface {
	Record(ctx context.Context, waqfID string, req dto.DonationRequest, actorID string) (models.Donation, error)
	RecordBatch(ctx context.Context, waqfID string, reqs []dto.DonationRequest, actorID string) ([]models.Donation, error)
	ListByWaqf(ctx context.Context, waqfID string) ([]models.Donation, error)
}

type donationService struct {
	donations repository.DonationRepository
	waqfs     repository.WaqfRepository
	analytics AnalyticsInvalidator
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewDonationService constructs the donation service. analytics may be nil.
func NewDonationService(donations repository.DonationRepository, waqfs repository.WaqfRepository, analytics AnalyticsInvalidator, validate *validator.Validate, logger zerolog.Logger) DonationService {
	return &donationService{
		donations: donations,
		waqfs:     waqfs,
		analytics: analytics,
		validator: validate,
		logger:    logger.With().Str("component", "donation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/waqf-api/internal/service/donation"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *donationService) Record(ctx context.Context, waqfID string, req dto.DonationRequest, actorID string) (models.Donation, error) {
	ctx, span := s.tracer.Start(ctx, "donation.record")
	defer span.End()
	span.SetAttributes(attribute.String("waqf.id", waqfID), attribute.Float64("donation.amount", req.Amount))

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return models.Donation{}, err
	}

	waqf, err := s.activeWaqf(ctx, waqfID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "waqf unavailable")
		return models.Donation{}, err
	}

	donation := s.buildDonation(waqf.ID, req, actorID)
	callerCtx := docstore.WithCaller(ctx, actorID)
	if err := s.donations.Put(callerCtx, donation); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return models.Donation{}, mapStoreError(err, ErrWaqfPermissionDenied, ErrDonationValidation, "record donation")
	}

	waqf.Financial.TotalDonations += donation.Amount
	waqf.Financial.CurrentBalance += donation.Amount
	s.applyAggregate(callerCtx, waqf)

	observability.Donations().WithLabelValues(donation.Currency).Inc()
	observability.DonationAmount().WithLabelValues(donation.Currency).Add(donation.Amount)
	span.SetStatus(codes.Ok, "recorded")

	return donation, nil
}

func (s *donationService) RecordBatch(ctx context.Context, waqfID string, reqs []dto.DonationRequest, actorID string) ([]models.Donation, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: at least one donation is required", ErrDonationValidation)
	}
	for i := range reqs {
		if err := s.validator.Struct(reqs[i]); err != nil {
			return nil, err
		}
	}

	waqf, err := s.activeWaqf(ctx, waqfID)
	if err != nil {
		return nil, err
	}

	callerCtx := docstore.WithCaller(ctx, actorID)
	recorded := make([]models.Donation, 0, len(reqs))
	for _, req := range reqs {
		donation := s.buildDonation(waqf.ID, req, actorID)
		if err := s.donations.Put(callerCtx, donation); err != nil {
			if len(recorded) > 0 {
				s.applyAggregate(callerCtx, withDonations(waqf, recorded))
			}
			return recorded, mapStoreError(err, ErrWaqfPermissionDenied, ErrDonationValidation, "record donation")
		}
		recorded = append(recorded, donation)
		observability.Donations().WithLabelValues(donation.Currency).Inc()
		observability.DonationAmount().WithLabelValues(donation.Currency).Add(donation.Amount)
	}

	s.applyAggregate(callerCtx, withDonations(waqf, recorded))
	return recorded, nil
}

func (s *donationService) ListByWaqf(ctx context.Context, waqfID string) ([]models.Donation, error) {
	return s.donations.ListByWaqf(ctx, strings.TrimSpace(waqfID))
}

func (s *donationService) activeWaqf(ctx context.Context, waqfID string) (models.WaqfProfile, error) {
	waqf, err := s.waqfs.Get(ctx, strings.TrimSpace(waqfID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.WaqfProfile{}, ErrWaqfNotFound
		}
		return models.WaqfProfile{}, err
	}
	switch waqf.Status {
	case models.WaqfStatusArchived:
		return models.WaqfProfile{}, ErrWaqfArchived
	case models.WaqfStatusInactive:
		return models.WaqfProfile{}, ErrWaqfInactive
	}
	return waqf, nil
}

func (s *donationService) buildDonation(waqfID string, req dto.DonationRequest, actorID string) models.Donation {
	now := s.now()
	date := now
	if req.Date != nil && !req.Date.IsZero() {
		date = req.Date.UTC()
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	donorID := strings.TrimSpace(req.DonorID)
	if donorID == "" {
		donorID = actorID
	}

	return models.Donation{
		ID:        uuid.NewString(),
		WaqfID:    waqfID,
		DonorID:   donorID,
		Amount:    req.Amount,
		Currency:  currency,
		Date:      date,
		Status:    models.DonationStatusCompleted,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: now,
	}
}

// applyAggregate writes the updated waqf totals. The donation is already stored, so a
// failure here is logged and left for reconciliation.
func (s *donationService) applyAggregate(ctx context.Context, waqf models.WaqfProfile) {
	waqf.Financial.GrowthRate = growthRate(waqf.Financial)
	waqf.UpdatedAt = s.now()
	if err := s.waqfs.Put(ctx, waqf); err != nil {
		s.logger.Error().Err(err).Str("waqf_id", waqf.ID).Msg("failed to update waqf totals after donation")
	}
	if s.analytics != nil {
		s.analytics.Invalidate(ctx, waqf.ID)
	}
}

func withDonations(waqf models.WaqfProfile, donations []models.Donation) models.WaqfProfile {
	for _, donation := range donations {
		waqf.Financial.TotalDonations += donation.Amount
		waqf.Financial.CurrentBalance += donation.Amount
	}
	return waqf
}
