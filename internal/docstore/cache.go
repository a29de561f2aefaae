package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CacheOptions configures the redis read-through cache.
type CacheOptions struct {
	TTL         time.Duration
	Prefix      string
	Collections []string
}

type cachedStore struct {
	next        Store
	redis       *redis.Client
	ttl         time.Duration
	prefix      string
	collections map[string]struct{}
	logger      zerolog.Logger
}

// NewCachedStore wraps next with a redis read-through cache for Get. Writes invalidate the cached
// entry after they succeed. When Collections is empty every collection is cached.
func NewCachedStore(next Store, client *redis.Client, opts CacheOptions, logger zerolog.Logger) Store {
	if client == nil {
		return next
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = "docstore"
	}

	collections := make(map[string]struct{}, len(opts.Collections))
	for _, name := range opts.Collections {
		collections[name] = struct{}{}
	}

	return &cachedStore{
		next:        next,
		redis:       client,
		ttl:         opts.TTL,
		prefix:      opts.Prefix,
		collections: collections,
		logger:      logger.With().Str("component", "docstore_cache").Logger(),
	}
}

func (s *cachedStore) Get(ctx context.Context, collection, key string) (Document, bool, error) {
	if !s.cached(collection) {
		return s.next.Get(ctx, collection, key)
	}

	cacheKey := s.key(collection, key)
	if payload, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
		var doc Document
		if err := json.Unmarshal(payload, &doc); err == nil {
			return doc, true, nil
		}
		s.logger.Warn().Str("key", cacheKey).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("cache read failed")
	}

	doc, found, err := s.next.Get(ctx, collection, key)
	if err != nil || !found {
		return doc, found, err
	}

	if payload, err := json.Marshal(doc); err == nil {
		if err := s.redis.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", cacheKey).Msg("cache write failed")
		}
	}

	return doc, true, nil
}

func (s *cachedStore) List(ctx context.Context, collection string, opts ListOptions) (ListResult, error) {
	return s.next.List(ctx, collection, opts)
}

func (s *cachedStore) Set(ctx context.Context, doc Document) (Document, error) {
	stored, err := s.next.Set(ctx, doc)
	if err != nil {
		return Document{}, err
	}
	s.invalidate(ctx, doc.Collection, doc.Key)
	return stored, nil
}

func (s *cachedStore) Delete(ctx context.Context, collection, key string) error {
	if err := s.next.Delete(ctx, collection, key); err != nil {
		return err
	}
	s.invalidate(ctx, collection, key)
	return nil
}

func (s *cachedStore) cached(collection string) bool {
	if len(s.collections) == 0 {
		return true
	}
	_, ok := s.collections[collection]
	return ok
}

func (s *cachedStore) invalidate(ctx context.Context, collection, key string) {
	if !s.cached(collection) {
		return
	}
	if err := s.redis.Del(ctx, s.key(collection, key)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("collection", collection).Str("key", key).Msg("cache invalidation failed")
	}
}

func (s *cachedStore) key(collection, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, collection, key)
}
