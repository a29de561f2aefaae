package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/dto"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/repository"
)

const causeCacheVersionKey = "causes:public:version"

var (
	// ErrCauseNotFound indicates the cause does not exist or is not visible.
	ErrCauseNotFound = errors.New("cause not found")
	// ErrCausePermissionDenied indicates the actor may not change the cause.
	ErrCausePermissionDenied = errors.New("cause permission denied")
	// ErrCauseValidation indicates the cause failed backend validation.
	ErrCauseValidation = errors.New("cause validation failed")
)

// CauseService exposes public and admin cause operations.
type CauseService interface {
	ListPublic(ctx context.Context, req dto.CauseListRequest) (dto.CauseListResponse, error)
	ListAdmin(ctx context.Context, req dto.CauseListRequest) (dto.CauseListResponse, error)
	GetPublic(ctx context.Context, id string) (models.Cause, error)
	Get(ctx context.Context, id string) (models.Cause, error)
	Create(ctx context.Context, req dto.CauseCreateRequest, actorID string) (models.Cause, error)
	Update(ctx context.Context, id string, req dto.CauseUpdateRequest, actorID string) (models.Cause, error)
	Delete(ctx context.Context, id, actorID string) error
	Approve(ctx context.Context, id, actorID string) (models.Cause, error)
	Reject(ctx context.Context, id, actorID string) (models.Cause, error)
	Follow(ctx context.Context, id, userID string) (models.Cause, error)
}

type causeService struct {
	repo      repository.CauseRepository
	validator *validator.Validate
	cache     *redis.Client
	ttl       time.Duration
	policy    *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCauseService constructs the cause service. cache may be nil.
func NewCauseService(repo repository.CauseRepository, cache *redis.Client, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) CauseService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &causeService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		ttl:       ttl,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "cause_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *causeService) ListPublic(ctx context.Context, req dto.CauseListRequest) (dto.CauseListResponse, error) {
	req.Status = string(models.CauseStatusApproved)
	req.ActiveOnly = true
	req.Page = normalizePage(req.Page)
	req.PageSize = clampPageSize(req.PageSize)

	cacheKey := s.publicCacheKey(ctx, req)
	if cacheKey != "" {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.CauseListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				return response, nil
			}
		}
	}

	response, err := s.list(ctx, req)
	if err != nil {
		return dto.CauseListResponse{}, err
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache causes")
			}
		}
	}
	return response, nil
}

func (s *causeService) ListAdmin(ctx context.Context, req dto.CauseListRequest) (dto.CauseListResponse, error) {
	req.Page = normalizePage(req.Page)
	req.PageSize = clampPageSize(req.PageSize)
	if req.Status != "" && !models.CauseStatus(req.Status).Valid() {
		return dto.CauseListResponse{}, fmt.Errorf("%w: unknown status %q", ErrCauseValidation, req.Status)
	}
	return s.list(ctx, req)
}

func (s *causeService) list(ctx context.Context, req dto.CauseListRequest) (dto.CauseListResponse, error) {
	causes, err := s.repo.List(ctx)
	if err != nil {
		return dto.CauseListResponse{}, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	category := strings.TrimSpace(req.Category)
	filtered := make([]models.Cause, 0, len(causes))
	for _, cause := range causes {
		if req.Status != "" && string(cause.Status) != req.Status {
			continue
		}
		if req.ActiveOnly && !cause.IsActive {
			continue
		}
		if category != "" && cause.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(cause.Name), search) &&
			!strings.Contains(strings.ToLower(cause.Description), search) {
			continue
		}
		filtered = append(filtered, cause)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].SortOrder != filtered[j].SortOrder {
			return filtered[i].SortOrder < filtered[j].SortOrder
		}
		return filtered[i].Name < filtered[j].Name
	})

	total := int64(len(filtered))
	start := (req.Page - 1) * req.PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + req.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return dto.CauseListResponse{
		Items:      filtered[start:end],
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *causeService) GetPublic(ctx context.Context, id string) (models.Cause, error) {
	cause, err := s.Get(ctx, id)
	if err != nil {
		return models.Cause{}, err
	}
	if cause.Status != models.CauseStatusApproved || !cause.IsActive {
		return models.Cause{}, ErrCauseNotFound
	}
	return cause, nil
}

func (s *causeService) Get(ctx context.Context, id string) (models.Cause, error) {
	cause, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Cause{}, ErrCauseNotFound
		}
		return models.Cause{}, fmt.Errorf("get cause %s: %w", id, err)
	}
	return cause, nil
}

func (s *causeService) Create(ctx context.Context, req dto.CauseCreateRequest, actorID string) (models.Cause, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Cause{}, err
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = models.DefaultCauseCategory
	}

	now := s.now()
	cause := models.Cause{
		ID:          uuid.NewString(),
		Name:        s.plain(req.Name),
		Description: s.plain(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
		CoverImage:  strings.TrimSpace(req.CoverImage),
		Category:    category,
		Status:      models.CauseStatusPending,
		SortOrder:   req.SortOrder,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Put(docstore.WithCaller(ctx, actorID), cause); err != nil {
		return models.Cause{}, mapCauseStoreError(err)
	}
	s.bumpVersion(ctx)
	return cause, nil
}

func (s *causeService) Update(ctx context.Context, id string, req dto.CauseUpdateRequest, actorID string) (models.Cause, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Cause{}, err
	}

	return s.mutate(ctx, id, actorID, func(cause *models.Cause) {
		if req.Name != nil {
			cause.Name = s.plain(*req.Name)
		}
		if req.Description != nil {
			cause.Description = s.plain(*req.Description)
		}
		if req.Icon != nil {
			cause.Icon = strings.TrimSpace(*req.Icon)
		}
		if req.CoverImage != nil {
			cause.CoverImage = strings.TrimSpace(*req.CoverImage)
		}
		if req.Category != nil {
			cause.Category = strings.TrimSpace(*req.Category)
		}
		if req.SortOrder != nil {
			cause.SortOrder = *req.SortOrder
		}
		if req.IsActive != nil {
			cause.IsActive = *req.IsActive
		}
	})
}

func (s *causeService) Delete(ctx context.Context, id, actorID string) error {
	if err := s.repo.Delete(docstore.WithCaller(ctx, actorID), strings.TrimSpace(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCauseNotFound
		}
		return mapCauseStoreError(err)
	}
	s.bumpVersion(ctx)
	return nil
}

func (s *causeService) Approve(ctx context.Context, id, actorID string) (models.Cause, error) {
	return s.mutate(ctx, id, actorID, func(cause *models.Cause) {
		now := s.now()
		cause.Status = models.CauseStatusApproved
		cause.IsActive = true
		cause.ApprovedBy = actorID
		cause.ApprovedAt = &now
	})
}

func (s *causeService) Reject(ctx context.Context, id, actorID string) (models.Cause, error) {
	return s.mutate(ctx, id, actorID, func(cause *models.Cause) {
		cause.Status = models.CauseStatusRejected
		cause.IsActive = false
		cause.ApprovedBy = ""
		cause.ApprovedAt = nil
	})
}

func (s *causeService) Follow(ctx context.Context, id, userID string) (models.Cause, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Cause{}, fmt.Errorf("%w: sign in to follow causes", ErrCausePermissionDenied)
	}

	cause, err := s.GetPublic(ctx, id)
	if err != nil {
		return models.Cause{}, err
	}

	if s.cache != nil {
		added, err := s.cache.SAdd(ctx, "cause:followers:"+cause.ID, userID).Result()
		if err != nil {
			s.logger.Warn().Err(err).Str("cause_id", cause.ID).Msg("follower set unavailable")
		} else if added == 0 {
			return cause, nil
		}
	}

	cause.Followers++
	if err := s.repo.Put(docstore.WithCaller(ctx, userID), cause); err != nil {
		return models.Cause{}, mapCauseStoreError(err)
	}
	s.bumpVersion(ctx)
	return cause, nil
}

func (s *causeService) mutate(ctx context.Context, id, actorID string, change func(*models.Cause)) (models.Cause, error) {
	cause, err := s.Get(ctx, id)
	if err != nil {
		return models.Cause{}, err
	}

	change(&cause)
	cause.UpdatedAt = s.now()

	if err := s.repo.Put(docstore.WithCaller(ctx, actorID), cause); err != nil {
		return models.Cause{}, mapCauseStoreError(err)
	}
	s.bumpVersion(ctx)
	return cause, nil
}

// plain strips markup, keeping the text readable.
func (s *causeService) plain(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s *causeService) publicCacheKey(ctx context.Context, req dto.CauseListRequest) string {
	if s.cache == nil {
		return ""
	}
	version, err := s.cache.Get(ctx, causeCacheVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("causes:public:v%d:%d:%d:%s:%s", version, req.Page, req.PageSize, req.Category, strings.ToLower(strings.TrimSpace(req.Search)))
}

func (s *causeService) bumpVersion(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, causeCacheVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate cause cache")
	}
}

func mapCauseStoreError(err error) error {
	return mapStoreError(err, ErrCausePermissionDenied, ErrCauseValidation, "persist cause")
}
