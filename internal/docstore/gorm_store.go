package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db     *gorm.DB
	rules  *Rules
	logger zerolog.Logger
	now    func() time.Time
}

// Migrate creates the documents table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Document{})
}

// NewGormStore constructs a store persisting documents through gorm. rules may be nil.
func NewGormStore(db *gorm.DB, rules *Rules, logger zerolog.Logger) Store {
	return &gormStore{
		db:     db,
		rules:  rules,
		logger: logger.With().Str("component", "docstore").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *gormStore) Get(ctx context.Context, collection, key string) (Document, bool, error) {
	if err := validateAddress(collection, key); err != nil {
		return Document{}, false, err
	}

	var doc Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_key = ?", collection, key).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}

	return doc, true, nil
}

func (s *gormStore) List(ctx context.Context, collection string, opts ListOptions) (ListResult, error) {
	if strings.TrimSpace(collection) == "" {
		return ListResult{}, fmt.Errorf("collection is required")
	}

	query := s.db.WithContext(ctx).Model(&Document{}).Where("collection = ?", collection)
	if opts.Description != "" {
		query = query.Where("description = ?", opts.Description)
	}
	if opts.Owner != "" {
		query = query.Where("owner = ?", opts.Owner)
	}
	if opts.KeyPrefix != "" {
		query = query.Where("doc_key LIKE ?", opts.KeyPrefix+"%")
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return ListResult{}, fmt.Errorf("count %s: %w", collection, err)
	}

	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: orderColumn(opts.OrderBy)}, Desc: opts.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: opts.Desc})
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var items []Document
	if err := query.Find(&items).Error; err != nil {
		return ListResult{}, fmt.Errorf("list %s: %w", collection, err)
	}

	return ListResult{Items: items, Total: total}, nil
}

func (s *gormStore) Set(ctx context.Context, doc Document) (Document, error) {
	if err := validateAddress(doc.Collection, doc.Key); err != nil {
		return Document{}, err
	}
	if len(doc.Data) == 0 {
		return Document{}, &RuleError{Kind: ErrInvalidDocument, Collection: doc.Collection, Key: doc.Key, Reason: "payload is required"}
	}

	var stored Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reader := &gormStore{db: tx, logger: s.logger, now: s.now}
		current, found, err := reader.Get(ctx, doc.Collection, doc.Key)
		if err != nil {
			return err
		}

		now := s.now()
		proposed := doc
		proposed.ID = 0
		proposed.UpdatedAt = now
		if found {
			proposed.CreatedAt = current.CreatedAt
			proposed.Version = current.Version + 1
			if proposed.Owner == "" {
				proposed.Owner = current.Owner
			}
		} else {
			proposed.CreatedAt = now
			proposed.Version = 1
		}

		mutation := Mutation{
			Caller:     CallerFromContext(ctx),
			Collection: doc.Collection,
			Key:        doc.Key,
			Proposed:   &proposed,
			Reader:     reader,
		}
		if found {
			mutation.Current = &current
		}
		if err := s.rules.checkSet(ctx, mutation); err != nil {
			return err
		}

		upsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "owner", "data", "version", "updated_at"}),
		})
		if err := upsert.Create(&proposed).Error; err != nil {
			return fmt.Errorf("set %s/%s: %w", doc.Collection, doc.Key, err)
		}

		stored = proposed
		if found {
			stored.ID = current.ID
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}

	return stored, nil
}

func (s *gormStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateAddress(collection, key); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reader := &gormStore{db: tx, logger: s.logger, now: s.now}
		current, found, err := reader.Get(ctx, collection, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		mutation := Mutation{
			Caller:     CallerFromContext(ctx),
			Collection: collection,
			Key:        key,
			Current:    &current,
			Reader:     reader,
		}
		if err := s.rules.checkDelete(ctx, mutation); err != nil {
			return err
		}

		if err := tx.Where("collection = ? AND doc_key = ?", collection, key).Delete(&Document{}).Error; err != nil {
			return fmt.Errorf("delete %s/%s: %w", collection, key, err)
		}
		return nil
	})
}

func validateAddress(collection, key string) error {
	if strings.TrimSpace(collection) == "" {
		return fmt.Errorf("collection is required")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	return nil
}
