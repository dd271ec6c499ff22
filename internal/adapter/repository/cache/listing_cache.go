package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carhive/listing-service/internal/listing/domain"
)

// ListingCache is a read-through cache for single-listing gets. Keys include
// the owner id so a cached entry can never serve a different owner's read.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewListingCache(addr string) (*ListingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return &ListingCache{client: client, ttl: 1 * time.Hour}, nil
}

func key(ownerID, id string) string {
	return "car:" + ownerID + ":" + id
}

// Get returns the cached listing or nil on a miss.
func (c *ListingCache) Get(ctx context.Context, ownerID, id string) (*domain.Listing, error) {
	data, err := c.client.Get(ctx, key(ownerID, id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var listing domain.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *ListingCache) Set(ctx context.Context, listing *domain.Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(listing.OwnerID, listing.ID), data, c.ttl).Err()
}

func (c *ListingCache) Delete(ctx context.Context, ownerID, id string) error {
	return c.client.Del(ctx, key(ownerID, id)).Err()
}
