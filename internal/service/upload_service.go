package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
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

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted for the collection.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadCollection indicates files cannot be stored in the requested collection.
	ErrUploadCollection = errors.New("unknown upload collection")
	// ErrUploadMissingFile indicates the request carried no file.
	ErrUploadMissingFile = errors.New("file is required")
)

// uploadCollections lists where files may be stored and which types each accepts.
var uploadCollections = map[string][]string{
	models.CollectionCauseImages: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	models.CollectionCauseCovers: {"image/png", "image/jpeg", "image/webp"},
	models.CollectionUploads:     {"image/png", "image/jpeg", "image/webp", "application/pdf"},
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, folder, name string, reader io.Reader) (string, error)
}

// UploadService validates files and stores them for a collection.
type UploadService interface {
	Upload(ctx context.Context, collection string, file *multipart.FileHeader, uploaderID string) (dto.UploadResponse, error)
	List(ctx context.Context, req dto.UploadListRequest) (dto.UploadListResponse, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
	now     func() time.Time
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/waqf-api/internal/service/upload"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *uploadService) Upload(ctx context.Context, collection string, file *multipart.FileHeader, uploaderID string) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	collection = strings.TrimSpace(collection)
	span.SetAttributes(
		attribute.String("upload.collection", collection),
		attribute.Int64("upload.max_bytes", s.maxSize),
	)

	allowed, ok := uploadCollections[collection]
	if !ok {
		observability.UploadRejected().WithLabelValues("collection").Inc()
		span.SetStatus(codes.Error, "unknown collection")
		return dto.UploadResponse{}, fmt.Errorf("%w: %q", ErrUploadCollection, collection)
	}

	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, ErrUploadMissingFile
	}
	span.SetAttributes(attribute.Int64("upload.request_size", file.Size))

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	fileType := normalizeMime(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !containsString(allowed, fileType) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	checksum := sha256.Sum256(buf.Bytes())
	sanitizedName := sanitizeFileName(file.Filename, detected.Extension())

	url, err := s.storage.Upload(ctx, collection, sanitizedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, err
	}

	record := models.UploadRecord{
		ID:         uuid.NewString(),
		Collection: collection,
		FileName:   sanitizedName,
		URL:        url,
		MimeType:   fileType,
		SizeBytes:  int64(buf.Len()),
		Checksum:   hex.EncodeToString(checksum[:]),
		UploadedBy: uploaderID,
		CreatedAt:  s.now(),
	}

	if err := s.repo.Create(docstore.WithCaller(ctx, uploaderID), &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		s.logger.Error().Err(err).Str("url", url).Msg("file stored but upload record not written")
		return dto.UploadResponse{}, err
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")

	s.logger.Info().
		Str("collection", collection).
		Str("upload_id", record.ID).
		Str("mime_type", fileType).
		Int64("size_bytes", record.SizeBytes).
		Msg("file uploaded")

	return toUploadResponse(record), nil
}

// List pages through stored files, newest first.
func (s *uploadService) List(ctx context.Context, req dto.UploadListRequest) (dto.UploadListResponse, error) {
	collection := strings.TrimSpace(req.Collection)
	if collection != "" {
		if _, ok := uploadCollections[collection]; !ok {
			return dto.UploadListResponse{}, fmt.Errorf("%w: %q", ErrUploadCollection, collection)
		}
	}
	page, pageSize := normalizePage(req.Page), clampPageSize(req.PageSize)

	records, total, err := s.repo.List(ctx, repository.UploadFilter{
		Page:       page,
		PageSize:   pageSize,
		Collection: collection,
		UploadedBy: strings.TrimSpace(req.UploadedBy),
	})
	if err != nil {
		return dto.UploadListResponse{}, err
	}

	items := make([]dto.UploadResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toUploadResponse(record))
	}
	return dto.UploadListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func toUploadResponse(record models.UploadRecord) dto.UploadResponse {
	return dto.UploadResponse{
		ID:         record.ID,
		Collection: record.Collection,
		URL:        record.URL,
		SizeBytes:  record.SizeBytes,
		MimeType:   record.MimeType,
		Checksum:   record.Checksum,
		FileName:   record.FileName,
		UploadedBy: record.UploadedBy,
		CreatedAt:  record.CreatedAt,
	}
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(detectedExt)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	return lower
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
