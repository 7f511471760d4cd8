package offers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/partshub/partshub/internal/clock"
)

// Shortfall reports a line that could not be fully held.
type Shortfall struct {
	ItemID    int64
	ProductID int64
	Requested int64
	Held      int64
}

// ReservationResult describes the outcome of a reserve pass. Partial holds
// are a success, not an error; callers surface shortfalls to staff.
type ReservationResult struct {
	Held       bool
	ExpiresAt  time.Time
	Shortfalls []Shortfall
}

// Impact renders a human-readable inventory_impact description for the ledger.
func (r ReservationResult) Impact() string {
	if !r.Held {
		if len(r.Shortfalls) > 0 {
			return "no stock available, nothing reserved"
		}
		return "no product lines to reserve"
	}
	if len(r.Shortfalls) == 0 {
		return "all product lines fully reserved"
	}
	parts := make([]string, 0, len(r.Shortfalls))
	for _, s := range r.Shortfalls {
		parts = append(parts, fmt.Sprintf("product %d held %d of %d", s.ProductID, s.Held, s.Requested))
	}
	return "partial reservation: " + strings.Join(parts, ", ")
}

// Coordinator manages the relationship between an offer and the inventory it
// provisionally holds. It owns no clock or timer; expiry is exposed as a
// pure predicate so callers can drive it deterministically.
type Coordinator struct {
	inventory InventoryPort
	ttl       time.Duration
	timeout   time.Duration
	clock     clock.Clock
}

// NewCoordinator builds a Coordinator. ttl is the reservation horizon set at
// successful reservation; timeout bounds each call to the collaborator.
func NewCoordinator(inventory InventoryPort, ttl, timeout time.Duration, clk clock.Clock) *Coordinator {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Coordinator{inventory: inventory, ttl: ttl, timeout: timeout, clock: clk}
}

// Reserve asks the inventory collaborator to hold quantity units for every
// product line, mutating the items' available/reserved quantities. A hard
// collaborator failure releases any holds already placed and returns
// ErrReservationFailure so the triggering transition fails wholesale.
func (c *Coordinator) Reserve(ctx context.Context, offer *Offer) (ReservationResult, error) {
	var result ReservationResult

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type placed struct {
		productID int64
		held      int64
	}
	var holds []placed

	for i := range offer.Items {
		item := &offer.Items[i]
		if item.ItemType != ItemTypeProduct || item.ProductID == nil {
			continue
		}
		held, err := c.inventory.Reserve(ctx, *item.ProductID, item.Quantity)
		if err != nil {
			for _, h := range holds {
				_ = c.inventory.Release(context.WithoutCancel(ctx), h.productID, h.held)
			}
			return ReservationResult{}, fmt.Errorf("%w: product %d: %v", ErrReservationFailure, *item.ProductID, err)
		}
		if held > item.Quantity {
			held = item.Quantity
		}
		if held > 0 {
			holds = append(holds, placed{productID: *item.ProductID, held: held})
			result.Held = true
			avail := held
			reserved := held
			item.AvailableQuantity = &avail
			item.ReservedQuantity = &reserved
		}
		if held < item.Quantity {
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				ItemID:    item.ID,
				ProductID: *item.ProductID,
				Requested: item.Quantity,
				Held:      held,
			})
		}
	}

	if result.Held {
		result.ExpiresAt = c.clock.Now().Add(c.ttl)
	}
	return result, nil
}

// Release returns every held quantity to the pool and clears the items'
// reservation fields. Releasing an offer with no active reservation is a
// no-op: cancellation paths call it speculatively.
func (c *Coordinator) Release(ctx context.Context, offer *Offer) error {
	if !offer.HasReservations {
		return nil
	}
	var firstErr error
	for i := range offer.Items {
		item := &offer.Items[i]
		if item.ItemType != ItemTypeProduct || item.ProductID == nil || item.ReservedQuantity == nil {
			continue
		}
		if *item.ReservedQuantity > 0 {
			if err := c.inventory.Release(ctx, *item.ProductID, *item.ReservedQuantity); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("release product %d: %w", *item.ProductID, err)
			}
		}
		item.AvailableQuantity = nil
		item.ReservedQuantity = nil
	}
	return firstErr
}

// Commit converts the hold into a permanent deduction. The de-duplication
// relies on the offer's own completed_at/has_reservations flags rather than
// the collaborator being idempotent: calling twice does not double-deduct.
func (c *Coordinator) Commit(ctx context.Context, offer *Offer) error {
	if offer.CompletedAt != nil || !offer.HasReservations {
		return nil
	}
	for i := range offer.Items {
		item := &offer.Items[i]
		if item.ItemType != ItemTypeProduct || item.ProductID == nil || item.ReservedQuantity == nil {
			continue
		}
		if *item.ReservedQuantity > 0 {
			if err := c.inventory.Commit(ctx, *item.ProductID, *item.ReservedQuantity); err != nil {
				return fmt.Errorf("commit product %d: %w", *item.ProductID, err)
			}
		}
	}
	return nil
}

// IsExpired reports whether an accepted offer's reservation horizon has
// passed. Pure predicate; the expiry sweep drives it with its own clock.
func (c *Coordinator) IsExpired(offer *Offer, now time.Time) bool {
	if offer.Status != OfferStatusAccepted || !offer.HasReservations {
		return false
	}
	return offer.ReservationExpiresAt != nil && offer.ReservationExpiresAt.Before(now)
}
