package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redeemly/redeemly/internal/model"
)

// Cache key prefixes and TTLs.
const (
	campaignKeyPrefix = "campaign:"
	negCacheKeySuffix = ":neg"

	// DefaultCampaignTTL is deliberately short. Cached campaigns feed
	// advisory precondition checks only; the redemption transaction
	// enforces the cap and state against the database, so a stale
	// counter costs nothing but a late rejection.
	DefaultCampaignTTL = 60 * time.Second

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetCampaign retrieves a campaign from cache by ID.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	key := campaignKeyPrefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var campaign model.Campaign
	if err := json.Unmarshal(data, &campaign); err != nil {
		// Corrupted entry, drop it and treat as a miss.
		c.client.Del(ctx, key)
		return nil, ErrCacheMiss
	}

	return &campaign, nil
}

// SetCampaign stores a campaign in cache. Campaigns close to expiry
// get a correspondingly shorter TTL; already-expired ones are evicted
// instead of cached.
func (c *Cache) SetCampaign(ctx context.Context, campaign *model.Campaign) error {
	key := campaignKeyPrefix + campaign.ID

	ttl := DefaultCampaignTTL
	if campaign.ExpiresAt != nil {
		expiresIn := time.Until(*campaign.ExpiresAt)
		if expiresIn <= 0 {
			c.client.Del(ctx, key, key+negCacheKeySuffix)
			return nil
		}
		if expiresIn < ttl {
			ttl = expiresIn
		}
	}

	data, err := json.Marshal(campaign)
	if err != nil {
		return fmt.Errorf("marshal campaign: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache campaign: %w", err)
	}

	// Remove negative cache if exists
	c.client.Del(ctx, key+negCacheKeySuffix)

	return nil
}

// DeleteCampaign removes a campaign from cache. Called on update and
// delete so the public path never serves stale metadata longer than a
// round trip.
func (c *Cache) DeleteCampaign(ctx context.Context, id string) error {
	key := campaignKeyPrefix + id

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete campaign from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a campaign ID is in negative cache.
// Unknown IDs hammered by bad links short-circuit here instead of
// hitting PostgreSQL on every attempt.
func (c *Cache) IsNegativelyCached(ctx context.Context, id string) (bool, error) {
	key := campaignKeyPrefix + id + negCacheKeySuffix

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a campaign ID as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, id string) error {
	key := campaignKeyPrefix + id + negCacheKeySuffix

	if err := c.client.SetEx(ctx, key, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
