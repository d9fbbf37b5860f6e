package cache

import (
	"context"
	"time"

	"github.com/hungpv1995/blog-api/internal/logger"
	"github.com/hungpv1995/blog-api/internal/models"
	"github.com/hungpv1995/blog-api/internal/repository"
)

// CachedPostStore adds a cache-aside read path to a PostStore.
// Cache errors are logged and never fail the request.
type CachedPostStore struct {
	repository.PostStore
	cache *RedisCache
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedPostStore(store repository.PostStore, cache *RedisCache, ttl time.Duration, log logger.Logger) *CachedPostStore {
	return &CachedPostStore{
		PostStore: store,
		cache:     cache,
		ttl:       ttl,
		log:       log,
	}
}

// FindByID serves from cache and fills it on a miss
func (s *CachedPostStore) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	cached, err := s.cache.GetPost(ctx, id)
	if err != nil {
		s.log.Warn("Cache error", "id", id, "error", err)
	}
	if cached != nil {
		s.log.Debug("Cache hit", "id", id)
		return cached, nil
	}

	s.log.Debug("Cache miss", "id", id)
	post, err := s.PostStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetPost(ctx, post, s.ttl); err != nil {
		s.log.Warn("Failed to cache post", "id", id, "error", err)
	}
	return post, nil
}

// Update writes through and invalidates the cached copy
func (s *CachedPostStore) Update(ctx context.Context, id string, update models.PostUpdate) error {
	if err := s.PostStore.Update(ctx, id, update); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Delete removes the post and its cached copy
func (s *CachedPostStore) Delete(ctx context.Context, id string) error {
	if err := s.PostStore.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// DropDatabase drops the store and flushes cached posts
func (s *CachedPostStore) DropDatabase(ctx context.Context) error {
	if err := s.PostStore.DropDatabase(ctx); err != nil {
		return err
	}
	if err := s.cache.Flush(ctx); err != nil {
		s.log.Warn("Failed to flush cache", "error", err)
	}
	return nil
}

// Close closes the cache client and the wrapped store
func (s *CachedPostStore) Close(ctx context.Context) error {
	if err := s.cache.Close(); err != nil {
		s.log.Warn("Failed to close cache", "error", err)
	}
	return s.PostStore.Close(ctx)
}

func (s *CachedPostStore) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidatePost(ctx, id); err != nil {
		s.log.Warn("Failed to invalidate cache", "id", id, "error", err)
		return
	}
	s.log.Debug("Cache invalidated", "id", id)
}
