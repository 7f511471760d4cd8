package offers

import "time"

type OfferStatus string

const (
	OfferStatusDraft     OfferStatus = "DRAFT"
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusCompleted OfferStatus = "COMPLETED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// Mutable reports whether line items may still be edited in this status.
func (s OfferStatus) Mutable() bool {
	return s == OfferStatusDraft || s == OfferStatusActive
}

type ItemType string

const (
	ItemTypeProduct ItemType = "PRODUCT"
	ItemTypeService ItemType = "SERVICE"
)

// TaxMode selects how a line's quoted unit price relates to tax.
type TaxMode string

const (
	// TaxInclusive means the quoted price already contains tax; tax is backed
	// out by division.
	TaxInclusive TaxMode = "INCLUSIVE"
	// TaxExclusive means tax is added on top of the quoted price.
	TaxExclusive TaxMode = "EXCLUSIVE"
)

// Offer is a price quotation. Customer fields are a point-in-time snapshot,
// not a live reference. All amounts are minor currency units.
type Offer struct {
	ID              int64       `json:"id" db:"id"`
	OfferNumber     string      `json:"offer_number" db:"offer_number"`
	Title           string      `json:"title" db:"title"`
	Description     *string     `json:"description,omitempty" db:"description"`
	Status          OfferStatus `json:"status" db:"status"`
	CustomerName    string      `json:"customer_name" db:"customer_name"`
	CustomerEmail   string      `json:"customer_email" db:"customer_email"`
	CustomerPhone   string      `json:"customer_phone" db:"customer_phone"`
	CustomerAddress string      `json:"customer_address" db:"customer_address"`
	Currency        string      `json:"currency" db:"currency"`
	Subtotal        int64       `json:"subtotal" db:"subtotal"`
	TaxAmount       int64       `json:"tax_amount" db:"tax_amount"`
	TotalAmount     int64       `json:"total_amount" db:"total_amount"`
	ValidUntil      *time.Time  `json:"valid_until,omitempty" db:"valid_until"`
	InternalNotes   *string     `json:"internal_notes,omitempty" db:"internal_notes"`
	CustomerNotes   *string     `json:"customer_notes,omitempty" db:"customer_notes"`
	CreatedBy       int64       `json:"created_by" db:"created_by"`
	AssignedTo      *int64      `json:"assigned_to,omitempty" db:"assigned_to"`

	HasReservations      bool       `json:"has_reservations" db:"has_reservations"`
	ReservationExpiresAt *time.Time `json:"reservation_expires_at,omitempty" db:"reservation_expires_at"`

	AcceptedAt  *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	LockVersion int64      `json:"lock_version" db:"lock_version"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	Items []OfferItem `json:"items,omitempty" db:"-"`
}

// OfferItem is one quoted line. The sku/title/description fields are copied
// from the catalog when the item is added and never re-read, so the quote is
// immune to later catalog edits.
type OfferItem struct {
	ID           int64    `json:"id" db:"id"`
	OfferID      int64    `json:"offer_id" db:"offer_id"`
	ItemType     ItemType `json:"item_type" db:"item_type"`
	ProductID    *int64   `json:"product_id,omitempty" db:"product_id"`
	ServiceID    *int64   `json:"service_id,omitempty" db:"service_id"`
	SKU          *string  `json:"sku,omitempty" db:"sku"`
	Title        string   `json:"title" db:"title"`
	Description  *string  `json:"description,omitempty" db:"description"`
	VariantTitle *string  `json:"variant_title,omitempty" db:"variant_title"`

	Quantity        int64   `json:"quantity" db:"quantity"`
	UnitPrice       int64   `json:"unit_price" db:"unit_price"`
	DiscountPercent float64 `json:"discount_percent" db:"discount_percent"`
	DiscountAmount  int64   `json:"discount_amount" db:"discount_amount"`
	TaxRate         float64 `json:"tax_rate" db:"tax_rate"`
	TaxMode         TaxMode `json:"tax_mode" db:"tax_mode"`
	TaxAmount       int64   `json:"tax_amount" db:"tax_amount"`
	TotalPrice      int64   `json:"total_price" db:"total_price"`

	SortOrder int `json:"sort_order" db:"sort_order"`

	// Populated only while the owning offer holds a reservation.
	AvailableQuantity *int64 `json:"available_quantity,omitempty" db:"available_quantity"`
	ReservedQuantity  *int64 `json:"reserved_quantity,omitempty" db:"reserved_quantity"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type EventType string

const (
	EventCreated   EventType = "created"
	EventActivated EventType = "activated"
	EventAccepted  EventType = "accepted"
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
	EventExpired   EventType = "expired"
	EventNoteAdded EventType = "note_added"
)

// HistoryEntry is one record in the append-only status ledger. Entries are
// never mutated or deleted once written.
type HistoryEntry struct {
	ID               int64        `json:"id" db:"id"`
	OfferID          int64        `json:"offer_id" db:"offer_id"`
	PreviousStatus   *OfferStatus `json:"previous_status,omitempty" db:"previous_status"`
	NewStatus        OfferStatus  `json:"new_status" db:"new_status"`
	EventType        EventType    `json:"event_type" db:"event_type"`
	EventDescription string       `json:"event_description" db:"event_description"`
	ChangedBy        *int64       `json:"changed_by,omitempty" db:"changed_by"`
	ChangedByName    *string      `json:"changed_by_name,omitempty" db:"changed_by_name"`
	Notes            *string      `json:"notes,omitempty" db:"notes"`
	SystemChange     bool         `json:"system_change" db:"system_change"`
	InventoryImpact  *string      `json:"inventory_impact,omitempty" db:"inventory_impact"`
	CommunicationSent bool        `json:"communication_sent" db:"communication_sent"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}
