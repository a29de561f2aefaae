package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/repository"
)

// Analytics periods.
const (
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodYearly    = "yearly"
)

// ErrInvalidPeriod indicates an unsupported analytics period.
var ErrInvalidPeriod = errors.New("period must be monthly, quarterly or yearly")

// WaqfAnalyticsService derives performance figures from a waqf's ledger.
type WaqfAnalyticsService interface {
	AnalyticsInvalidator
	Performance(ctx context.Context, waqfID string) (dto.WaqfPerformance, error)
	Analytics(ctx context.Context, waqfID, period string) (dto.WaqfAnalytics, error)
	Growth(ctx context.Context, waqfID string) (dto.WaqfGrowth, error)
}

type waqfAnalyticsService struct {
	donations   repository.DonationRepository
	allocations repository.AllocationRepository
	cache       *redis.Client
	ttl         time.Duration
	logger      zerolog.Logger
}

// NewWaqfAnalyticsService constructs the analytics service. cache may be nil.
func NewWaqfAnalyticsService(donations repository.DonationRepository, allocations repository.AllocationRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) WaqfAnalyticsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &waqfAnalyticsService{
		donations:   donations,
		allocations: allocations,
		cache:       cache,
		ttl:         ttl,
		logger:      logger.With().Str("component", "waqf_analytics_service").Logger(),
	}
}

func (s *waqfAnalyticsService) Performance(ctx context.Context, waqfID string) (dto.WaqfPerformance, error) {
	waqfID = strings.TrimSpace(waqfID)
	key := analyticsCacheKey(waqfID, "performance")

	var cached dto.WaqfPerformance
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	donations, allocations, err := s.ledger(ctx, waqfID)
	if err != nil {
		return dto.WaqfPerformance{}, err
	}

	performance := dto.WaqfPerformance{
		WaqfID:          waqfID,
		DonationCount:   len(donations),
		AllocationCount: len(allocations),
	}
	for _, donation := range donations {
		performance.TotalDonations += donation.Amount
	}
	for _, group := range allocations {
		performance.TotalAllocations += group.TotalAmount
	}
	performance.NetGrowth = performance.TotalDonations - performance.TotalAllocations

	s.writeCache(ctx, key, performance)
	return performance, nil
}

func (s *waqfAnalyticsService) Analytics(ctx context.Context, waqfID, period string) (dto.WaqfAnalytics, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		period = PeriodMonthly
	}
	if _, err := periodKey(time.Time{}, period); err != nil {
		return dto.WaqfAnalytics{}, err
	}

	waqfID = strings.TrimSpace(waqfID)
	key := analyticsCacheKey(waqfID, period)

	var cached dto.WaqfAnalytics
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	donations, allocations, err := s.ledger(ctx, waqfID)
	if err != nil {
		return dto.WaqfAnalytics{}, err
	}

	buckets := make(map[string]*dto.PeriodBucket)
	bucket := func(at time.Time) *dto.PeriodBucket {
		k, _ := periodKey(at, period)
		b, ok := buckets[k]
		if !ok {
			b = &dto.PeriodBucket{Period: k}
			buckets[k] = b
		}
		return b
	}
	for _, donation := range donations {
		b := bucket(donation.Date)
		b.Donations += donation.Amount
		b.DonationCount++
	}
	for _, group := range allocations {
		b := bucket(group.AllocatedAt)
		b.Allocations += group.TotalAmount
		b.AllocationCount++
	}

	ordered := make([]dto.PeriodBucket, 0, len(buckets))
	for _, b := range buckets {
		b.Net = b.Donations - b.Allocations
		ordered = append(ordered, *b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Period < ordered[j].Period })

	analytics := dto.WaqfAnalytics{
		WaqfID:             waqfID,
		Period:             period,
		Buckets:            ordered,
		DonationGrowthRate: donationGrowthRate(ordered),
	}

	s.writeCache(ctx, key, analytics)
	return analytics, nil
}

func (s *waqfAnalyticsService) Growth(ctx context.Context, waqfID string) (dto.WaqfGrowth, error) {
	performance, err := s.Performance(ctx, waqfID)
	if err != nil {
		return dto.WaqfGrowth{}, err
	}

	growth := dto.WaqfGrowth{Absolute: performance.NetGrowth, Relative: 100}
	if performance.TotalAllocations > 0 {
		growth.Relative = performance.NetGrowth / performance.TotalAllocations * 100
	}
	return growth, nil
}

func (s *waqfAnalyticsService) Invalidate(ctx context.Context, waqfID string) {
	if s.cache == nil {
		return
	}
	keys := []string{
		analyticsCacheKey(waqfID, "performance"),
		analyticsCacheKey(waqfID, PeriodMonthly),
		analyticsCacheKey(waqfID, PeriodQuarterly),
		analyticsCacheKey(waqfID, PeriodYearly),
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Str("waqf_id", waqfID).Msg("failed to invalidate analytics cache")
	}
}

// ledger fetches donations and allocations concurrently.
func (s *waqfAnalyticsService) ledger(ctx context.Context, waqfID string) ([]models.Donation, []models.AllocationGroup, error) {
	var (
		donations   []models.Donation
		allocations []models.AllocationGroup
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		items, err := s.donations.ListByWaqf(egCtx, waqfID)
		if err != nil {
			return err
		}
		donations = items
		return nil
	})
	eg.Go(func() error {
		items, err := s.allocations.ListByWaqf(egCtx, waqfID)
		if err != nil {
			return err
		}
		allocations = items
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	completed := donations[:0]
	for _, donation := range donations {
		if donation.Status == models.DonationStatusCompleted {
			completed = append(completed, donation)
		}
	}
	return completed, allocations, nil
}

func (s *waqfAnalyticsService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("analytics cache read failed")
		}
		return false
	}
	return json.Unmarshal([]byte(cached), target) == nil
}

func (s *waqfAnalyticsService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache analytics")
	}
}

func analyticsCacheKey(waqfID, view string) string {
	return fmt.Sprintf("waqf:analytics:v1:%s:%s", waqfID, view)
}

// periodKey formats at as YYYY-MM, YYYY-Qn or YYYY.
func periodKey(at time.Time, period string) (string, error) {
	at = at.UTC()
	switch period {
	case PeriodMonthly:
		return at.Format("2006-01"), nil
	case PeriodQuarterly:
		return fmt.Sprintf("%d-Q%d", at.Year(), (int(at.Month())-1)/3+1), nil
	case PeriodYearly:
		return at.Format("2006"), nil
	default:
		return "", ErrInvalidPeriod
	}
}

// donationGrowthRate compares the last two buckets. A previous bucket with no donations
// counts as full growth.
func donationGrowthRate(buckets []dto.PeriodBucket) float64 {
	if len(buckets) < 2 {
		return 0
	}
	last := buckets[len(buckets)-1].Donations
	previous := buckets[len(buckets)-2].Donations
	if previous == 0 {
		return 100
	}
	return (last - previous) / previous * 100
}
