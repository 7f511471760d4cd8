package offers

import "time"

type CreateOfferRequest struct {
	Title           string     `json:"title" validate:"required,max=200"`
	Description     *string    `json:"description,omitempty"`
	CustomerName    string     `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string     `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   string     `json:"customer_phone" validate:"max=50"`
	CustomerAddress string     `json:"customer_address" validate:"max=500"`
	Currency        string     `json:"currency" validate:"omitempty,len=3"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	InternalNotes   *string    `json:"internal_notes,omitempty"`
	CustomerNotes   *string    `json:"customer_notes,omitempty"`
	AssignedTo      *int64     `json:"assigned_to,omitempty"`
	Items           []AddItemRequest `json:"items" validate:"dive"`
}

type AddItemRequest struct {
	ItemType        ItemType `json:"item_type" validate:"required,oneof=PRODUCT SERVICE"`
	ProductID       *int64   `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	ServiceID       *int64   `json:"service_id,omitempty" validate:"omitempty,gt=0"`
	Quantity        int64    `json:"quantity" validate:"required,gt=0"`
	UnitPrice       *int64   `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent float64  `json:"discount_percent" validate:"gte=0,lte=100"`
	DiscountAmount  int64    `json:"discount_amount" validate:"gte=0"`
	TaxRate         *float64 `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxMode         TaxMode  `json:"tax_mode" validate:"omitempty,oneof=INCLUSIVE EXCLUSIVE"`
	Description     *string  `json:"description,omitempty"`
}

type UpdateItemRequest struct {
	Quantity        *int64   `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice       *int64   `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent *float64 `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	DiscountAmount  *int64   `json:"discount_amount,omitempty" validate:"omitempty,gte=0"`
	TaxRate         *float64 `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxMode         *TaxMode `json:"tax_mode,omitempty" validate:"omitempty,oneof=INCLUSIVE EXCLUSIVE"`
	Description     *string  `json:"description,omitempty"`
}

type ReorderItemsRequest struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1"`
}

type UpdateOfferRequest struct {
	Title           *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Description     *string    `json:"description,omitempty"`
	CustomerName    *string    `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	CustomerEmail   *string    `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerPhone   *string    `json:"customer_phone,omitempty" validate:"omitempty,max=50"`
	CustomerAddress *string    `json:"customer_address,omitempty" validate:"omitempty,max=500"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	InternalNotes   *string    `json:"internal_notes,omitempty"`
	CustomerNotes   *string    `json:"customer_notes,omitempty"`
	AssignedTo      *int64     `json:"assigned_to,omitempty"`
}

type AddNoteRequest struct {
	Note string `json:"note" validate:"required,max=2000"`
}

type TransitionRequest struct {
	NotifyCustomer bool    `json:"notify_customer"`
	Reason         *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ListOffersRequest struct {
	Status   *OfferStatus `json:"status,omitempty"`
	Query    *string      `json:"q,omitempty"`
	DateFrom *time.Time   `json:"date_from,omitempty"`
	DateTo   *time.Time   `json:"date_to,omitempty"`
	Limit    int          `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int          `json:"offset" validate:"gte=0"`
}

// Actor identifies who initiated an operation, for the ledger.
type Actor struct {
	ID   int64
	Name string
}

func (a Actor) idPtr() *int64 {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

func (a Actor) namePtr() *string {
	if a.Name == "" {
		return nil
	}
	name := a.Name
	return &name
}
