package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Resolver serves catalog lookups with a short-lived redis cache in front of
// the repository. Concurrent lookups for the same key are collapsed through
// singleflight so bursts of offer edits do not stampede the database.
type Resolver struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewResolver(repo Repository, cache *redis.Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{repo: repo, cache: cache, ttl: ttl}
}

// Product resolves a product, preferring the cache.
func (r *Resolver) Product(ctx context.Context, id int64) (*Product, error) {
	key := fmt.Sprintf("catalog:product:%d", id)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if cached, ok := cacheGet[Product](ctx, r.cache, key); ok {
			return cached, nil
		}
		p, err := r.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		cacheSet(ctx, r.cache, key, p, r.ttl)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

// Service resolves a service, preferring the cache.
func (r *Resolver) Service(ctx context.Context, id int64) (*Service, error) {
	key := fmt.Sprintf("catalog:service:%d", id)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if cached, ok := cacheGet[Service](ctx, r.cache, key); ok {
			return cached, nil
		}
		s, err := r.repo.GetService(ctx, id)
		if err != nil {
			return nil, err
		}
		cacheSet(ctx, r.cache, key, s, r.ttl)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Service), nil
}

func cacheGet[T any](ctx context.Context, client *redis.Client, key string) (*T, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return &value, true
}

func cacheSet[T any](ctx context.Context, client *redis.Client, key string, value *T, ttl time.Duration) {
	if client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}
