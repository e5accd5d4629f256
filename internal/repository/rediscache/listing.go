package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ronak-Malkan/teachyourselfmath/internal/domain"
)

const (
	pageKeyPrefix = "problems:list:"
	versionKey    = "problems:list:version"
	tagsKey       = "tags:all"
)

// ListingCache is a Redis read-through cache for problem listings and the
// tag index. Listing keys embed a version counter; bumping the counter on
// writes orphans every cached page at once, and the orphans age out via TTL.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewListingCache creates a Redis-backed listing cache.
func NewListingCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ListingCache {
	return &ListingCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetProblemPage returns the cached page for the filter key, if present.
// Cache errors are logged and reported as misses.
func (c *ListingCache) GetProblemPage(ctx context.Context, filterKey string) (*domain.ProblemPage, bool) {
	data, err := c.client.Get(ctx, c.pageKey(ctx, filterKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "listing cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var page domain.ProblemPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.WarnContext(ctx, "listing cache entry corrupt", slog.String("error", err.Error()))
		return nil, false
	}

	return &page, true
}

// SetProblemPage stores a page under the filter key with the configured TTL.
func (c *ListingCache) SetProblemPage(ctx context.Context, filterKey string, page *domain.ProblemPage) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.WarnContext(ctx, "marshal listing page", slog.String("error", err.Error()))
		return
	}

	if err := c.client.Set(ctx, c.pageKey(ctx, filterKey), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "listing cache write failed", slog.String("error", err.Error()))
	}
}

// GetTags returns the cached tag index, if present.
func (c *ListingCache) GetTags(ctx context.Context) ([]domain.Tag, bool) {
	data, err := c.client.Get(ctx, tagsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "tag cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var tags []domain.Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		c.logger.WarnContext(ctx, "tag cache entry corrupt", slog.String("error", err.Error()))
		return nil, false
	}

	return tags, true
}

// SetTags stores the tag index with the configured TTL.
func (c *ListingCache) SetTags(ctx context.Context, tags []domain.Tag) {
	data, err := json.Marshal(tags)
	if err != nil {
		c.logger.WarnContext(ctx, "marshal tag index", slog.String("error", err.Error()))
		return
	}

	if err := c.client.Set(ctx, tagsKey, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "tag cache write failed", slog.String("error", err.Error()))
	}
}

// Invalidate bumps the listing version and drops the tag index.
func (c *ListingCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "bump listing version failed", slog.String("error", err.Error()))
	}
	if err := c.client.Del(ctx, tagsKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "drop tag index failed", slog.String("error", err.Error()))
	}
}

func (c *ListingCache) pageKey(ctx context.Context, filterKey string) string {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil && err != redis.Nil {
		c.logger.WarnContext(ctx, "read listing version failed", slog.String("error", err.Error()))
	}
	return fmt.Sprintf("%sv%d:%s", pageKeyPrefix, version, filterKey)
}
