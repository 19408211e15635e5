package service

import (
	"context"
	"errors"

	"github.com/redeemly/redeemly/internal/cache"
	"github.com/redeemly/redeemly/internal/metrics"
	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/repository"
)

// CampaignCache is the campaign-metadata cache surface. *cache.Cache
// implements it against Redis.
type CampaignCache interface {
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	SetCampaign(ctx context.Context, campaign *model.Campaign) error
	DeleteCampaign(ctx context.Context, id string) error
	IsNegativelyCached(ctx context.Context, id string) (bool, error)
	SetNegativeCache(ctx context.Context, id string) error
}

// cachedRedemptionStore puts a campaign cache in front of the store's
// campaign reads. Only the advisory precondition read is cached; code
// lookups and the redemption transaction always go to the database.
type cachedRedemptionStore struct {
	store   RedemptionStore
	cache   CampaignCache
	metrics metrics.Recorder
}

// NewCachedStore wraps store with campaign-metadata caching. A nil
// cache returns the store unchanged.
func NewCachedStore(store RedemptionStore, campaignCache CampaignCache, recorder metrics.Recorder) RedemptionStore {
	if campaignCache == nil {
		return store
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &cachedRedemptionStore{
		store:   store,
		cache:   campaignCache,
		metrics: recorder,
	}
}

func (s *cachedRedemptionStore) GetCampaignByID(ctx context.Context, id string) (*model.Campaign, error) {
	if negative, err := s.cache.IsNegativelyCached(ctx, id); err == nil && negative {
		s.metrics.IncCampaignCacheHit()
		return nil, repository.ErrCampaignNotFound
	}

	campaign, err := s.cache.GetCampaign(ctx, id)
	if err == nil {
		s.metrics.IncCampaignCacheHit()
		return campaign, nil
	}
	s.metrics.IncCampaignCacheMiss()

	campaign, err = s.store.GetCampaignByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			// Best effort; a failed write just means another miss.
			_ = s.cache.SetNegativeCache(ctx, id)
		}
		return nil, err
	}

	_ = s.cache.SetCampaign(ctx, campaign)
	return campaign, nil
}

func (s *cachedRedemptionStore) GetCodeByValue(ctx context.Context, uniqueCode string) (*model.RedemptionCode, error) {
	return s.store.GetCodeByValue(ctx, uniqueCode)
}

// RedeemCode delegates straight through. The cached campaign's
// counters go stale for at most the cache TTL, which only delays a
// limit rejection; the transaction still enforces the cap.
func (s *cachedRedemptionStore) RedeemCode(ctx context.Context, params repository.RedeemParams) (*repository.RedeemRecord, error) {
	return s.store.RedeemCode(ctx, params)
}

var _ CampaignCache = (*cache.Cache)(nil)
