package offers

import "context"

// ProductSnapshot is the slice of catalog data copied onto a product line at
// add-time.
type ProductSnapshot struct {
	SKU          string
	Title        string
	Description  string
	VariantTitle string
	Price        int64
	TaxRate      float64
}

// ServiceSnapshot is the catalog data copied onto a service line at add-time.
type ServiceSnapshot struct {
	Title       string
	Description string
	Price       int64
	TaxRate     float64
}

// CatalogPort resolves catalog entities once, at item-add time. Later catalog
// deletions do not invalidate already-snapshotted items.
type CatalogPort interface {
	ResolveProduct(ctx context.Context, id int64) (ProductSnapshot, error)
	ResolveService(ctx context.Context, id int64) (ServiceSnapshot, error)
}

// InventoryPort is the narrow interface to the inventory collaborator,
// consumed exclusively by the reservation Coordinator.
type InventoryPort interface {
	// Reserve asks for qty units and returns how many were actually held.
	Reserve(ctx context.Context, productID, qty int64) (held int64, err error)
	Release(ctx context.Context, productID, qty int64) error
	Commit(ctx context.Context, productID, qty int64) error
}

// NotifierPort dispatches customer notifications. Failures are recorded on
// the history entry, never propagated as transition failures.
type NotifierPort interface {
	Notify(ctx context.Context, event string, offerID int64, recipient string) error
}

// TransitionObserver counts committed status transitions by target status.
type TransitionObserver interface {
	ObserveTransition(to string)
}
