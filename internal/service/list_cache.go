package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/models"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

const (
	listKeyPrefix = "moderation:list:"
	// Stored for publishers known to have no entry.
	listNone = "none"
)

// ListCache caches the list flag of publishers. Set with an empty kind
// records that the publisher has no entry.
type ListCache interface {
	Get(ctx context.Context, publisherID string) (kind models.ListKind, found bool, err error)
	Set(ctx context.Context, publisherID string, kind models.ListKind) error
	Delete(ctx context.Context, publisherID string) error
}

func encodeKind(kind models.ListKind) string {
	if kind == "" {
		return listNone
	}
	return string(kind)
}

func decodeKind(v string) models.ListKind {
	if v == listNone {
		return ""
	}
	return models.ListKind(v)
}

// RedisListCache keeps publisher list flags in Redis so several server
// processes share them.
type RedisListCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisListCache creates a new RedisListCache. A zero ttl keeps keys forever.
func NewRedisListCache(redisClient *redis.Client, ttl time.Duration) *RedisListCache {
	return &RedisListCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (c *RedisListCache) key(publisherID string) string {
	return listKeyPrefix + publisherID
}

// Get returns the cached flag of a publisher.
func (c *RedisListCache) Get(ctx context.Context, publisherID string) (models.ListKind, bool, error) {
	v, err := c.redisClient.Get(ctx, c.key(publisherID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read list cache: %w", err)
	}
	return decodeKind(v), true, nil
}

// Set caches the flag of a publisher.
func (c *RedisListCache) Set(ctx context.Context, publisherID string, kind models.ListKind) error {
	if err := c.redisClient.Set(ctx, c.key(publisherID), encodeKind(kind), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write list cache: %w", err)
	}
	return nil
}

// Delete drops the cached flag of a publisher.
func (c *RedisListCache) Delete(ctx context.Context, publisherID string) error {
	if err := c.redisClient.Del(ctx, c.key(publisherID)).Err(); err != nil {
		return fmt.Errorf("failed to delete from list cache: %w", err)
	}
	return nil
}

// LoadFromStore warms the cache with every list entry in the store.
// This should be called on application startup.
func (c *RedisListCache) LoadFromStore(ctx context.Context, store repository.Store) error {
	var entries []*models.ListEntry
	err := store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		entries, err = tx.ListListEntries(ctx, repository.ListEntryFilter{})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load list entries from store: %w", err)
	}

	if len(entries) == 0 {
		logger.Log.Info("No publisher list entries found in store")
		return nil
	}

	pipe := c.redisClient.Pipeline()
	for _, e := range entries {
		pipe.Set(ctx, c.key(e.PublisherID), encodeKind(e.Kind), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to load list entries into Redis: %w", err)
	}

	logger.Log.Info("Loaded publisher list entries into cache", zap.Int("count", len(entries)))
	return nil
}

// LocalListCache keeps publisher list flags in process memory. It serves a
// single server process when Redis is not configured.
type LocalListCache struct {
	c *cache.Cache
}

// NewLocalListCache creates a LocalListCache whose entries expire after ttl.
func NewLocalListCache(ttl, cleanupInterval time.Duration) *LocalListCache {
	return &LocalListCache{c: cache.New(ttl, cleanupInterval)}
}

// Get returns the cached flag of a publisher.
func (l *LocalListCache) Get(_ context.Context, publisherID string) (models.ListKind, bool, error) {
	v, ok := l.c.Get(publisherID)
	if !ok {
		return "", false, nil
	}
	kind, _ := v.(models.ListKind)
	return kind, true, nil
}

// Set caches the flag of a publisher.
func (l *LocalListCache) Set(_ context.Context, publisherID string, kind models.ListKind) error {
	l.c.SetDefault(publisherID, kind)
	return nil
}

// Delete drops the cached flag of a publisher.
func (l *LocalListCache) Delete(_ context.Context, publisherID string) error {
	l.c.Delete(publisherID)
	return nil
}

var (
	_ ListCache = (*RedisListCache)(nil)
	_ ListCache = (*LocalListCache)(nil)
)
