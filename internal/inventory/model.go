package inventory

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("inventory: balance not found")

// MovementKind tags a row in the stock movement ledger.
type MovementKind string

const (
	MovementReserve MovementKind = "RESERVE"
	MovementRelease MovementKind = "RELEASE"
	MovementCommit  MovementKind = "COMMIT"
	MovementAdjust  MovementKind = "ADJUST"
)

// Balance is the per-product stock position. Available stock is derived, never
// stored: OnHand - Reserved.
type Balance struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	OnHand    int64     `json:"on_hand" db:"on_hand"`
	Reserved  int64     `json:"reserved" db:"reserved"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Available returns the quantity free to be held for new reservations.
func (b Balance) Available() int64 {
	avail := b.OnHand - b.Reserved
	if avail < 0 {
		return 0
	}
	return avail
}

// Movement is an append-only ledger row explaining every balance change.
type Movement struct {
	ID        int64        `json:"id" db:"id"`
	ProductID int64        `json:"product_id" db:"product_id"`
	Kind      MovementKind `json:"kind" db:"kind"`
	Quantity  int64        `json:"quantity" db:"quantity"`
	Reference string       `json:"reference" db:"reference"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
