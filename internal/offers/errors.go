package offers

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an offer, item, product or service id did not resolve.
	ErrNotFound = errors.New("offers: not found")
	// ErrOfferNotMutable indicates an item edit outside the draft/active states.
	ErrOfferNotMutable = errors.New("offers: offer is not mutable")
	// ErrIncompleteOrdering indicates a reorder set that does not match the offer's items.
	ErrIncompleteOrdering = errors.New("offers: ordering must list every item exactly once")
	// ErrConcurrentModification indicates an optimistic-lock conflict.
	ErrConcurrentModification = errors.New("offers: offer was modified concurrently")
	// ErrReservationFailure indicates the inventory collaborator could not be reached.
	ErrReservationFailure = errors.New("offers: inventory reservation failed")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("offers: validation failed")
	// ErrInvalidTransition is the sentinel matched by InvalidTransitionError.
	ErrInvalidTransition = errors.New("offers: invalid status transition")
)

// InvalidTransitionError carries the attempted from/to pair for diagnostics.
type InvalidTransitionError struct {
	From OfferStatus
	To   OfferStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("offers: invalid status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
