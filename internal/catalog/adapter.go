package catalog

import (
	"context"
	"errors"

	"github.com/partshub/partshub/internal/offers"
)

// OfferAdapter exposes the resolver through the snapshot-shaped interface the
// offer service consumes.
type OfferAdapter struct {
	resolver *Resolver
}

func NewOfferAdapter(resolver *Resolver) *OfferAdapter {
	return &OfferAdapter{resolver: resolver}
}

func (a *OfferAdapter) ResolveProduct(ctx context.Context, id int64) (offers.ProductSnapshot, error) {
	p, err := a.resolver.Product(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return offers.ProductSnapshot{}, offers.ErrNotFound
		}
		return offers.ProductSnapshot{}, err
	}
	return offers.ProductSnapshot{
		SKU:          p.SKU,
		Title:        p.Title,
		Description:  p.Description,
		VariantTitle: p.VariantTitle,
		Price:        p.Price,
		TaxRate:      p.TaxRate,
	}, nil
}

func (a *OfferAdapter) ResolveService(ctx context.Context, id int64) (offers.ServiceSnapshot, error) {
	s, err := a.resolver.Service(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return offers.ServiceSnapshot{}, offers.ErrNotFound
		}
		return offers.ServiceSnapshot{}, err
	}
	return offers.ServiceSnapshot{
		Title:       s.Title,
		Description: s.Description,
		Price:       s.Price,
		TaxRate:     s.TaxRate,
	}, nil
}
