package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	products map[int64]*Product
	services map[int64]*Service
	calls    int
}

func (r *countingRepo) GetProduct(_ context.Context, id int64) (*Product, error) {
	r.calls++
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (r *countingRepo) GetService(_ context.Context, id int64) (*Service, error) {
	r.calls++
	s, ok := r.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func newTestResolver(t *testing.T, repo Repository) *Resolver {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewResolver(repo, client, time.Minute)
}

func TestResolverProductCachesSecondLookup(t *testing.T) {
	repo := &countingRepo{products: map[int64]*Product{
		7: {ID: 7, SKU: "BRK-PAD-7", Title: "Brake Pad Set", Price: 4500, TaxRate: 19},
	}}
	resolver := newTestResolver(t, repo)
	ctx := context.Background()

	first, err := resolver.Product(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "BRK-PAD-7", first.SKU)

	second, err := resolver.Product(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, first.Price, second.Price)
	require.Equal(t, 1, repo.calls)
}

func TestResolverProductNotFound(t *testing.T) {
	resolver := newTestResolver(t, &countingRepo{})

	_, err := resolver.Product(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolverServiceCachesSecondLookup(t *testing.T) {
	repo := &countingRepo{services: map[int64]*Service{
		3: {ID: 3, Title: "Brake Pad Installation", Price: 6500, TaxRate: 19},
	}}
	resolver := newTestResolver(t, repo)
	ctx := context.Background()

	_, err := resolver.Service(ctx, 3)
	require.NoError(t, err)
	svc, err := resolver.Service(ctx, 3)
	require.NoError(t, err)
	require.EqualValues(t, 6500, svc.Price)
	require.Equal(t, 1, repo.calls)
}

func TestResolverWorksWithoutCache(t *testing.T) {
	repo := &countingRepo{products: map[int64]*Product{
		1: {ID: 1, SKU: "OIL-5W30", Title: "Engine Oil 5W30", Price: 2999, TaxRate: 19},
	}}
	resolver := NewResolver(repo, nil, time.Minute)

	p, err := resolver.Product(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "OIL-5W30", p.SKU)

	_, err = resolver.Product(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}
