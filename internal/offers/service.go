package offers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/partshub/partshub/internal/clock"
)

// ServiceConfig groups company-level defaults passed in at construction time
// instead of being read from ambient state.
type ServiceConfig struct {
	DefaultCurrency string
	DefaultValidity time.Duration
}

// Service owns the offer lifecycle: it enforces legal transitions, keeps the
// stored totals equal to a fresh recomputation, and appends every transition
// to the status ledger in the same transaction as the status write.
type Service struct {
	repo         Repository
	catalog      CatalogPort
	reservations *Coordinator
	notifier     NotifierPort
	calc         *Calculator
	metrics      TransitionObserver
	clock        clock.Clock
	logger       *slog.Logger
	cfg          ServiceConfig
}

func NewService(
	repo Repository,
	catalog CatalogPort,
	reservations *Coordinator,
	notifier NotifierPort,
	calc *Calculator,
	metrics TransitionObserver,
	clk clock.Clock,
	logger *slog.Logger,
	cfg ServiceConfig,
) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "EUR"
	}
	return &Service{
		repo:         repo,
		catalog:      catalog,
		reservations: reservations,
		notifier:     notifier,
		calc:         calc,
		metrics:      metrics,
		clock:        clk,
		logger:       logger,
		cfg:          cfg,
	}
}

// Create builds a new draft offer with zero or more items and writes the
// ledger entry marking creation.
func (s *Service) Create(ctx context.Context, req CreateOfferRequest, actor Actor) (*Offer, error) {
	now := s.clock.Now()

	items := make([]OfferItem, 0, len(req.Items))
	for i, itemReq := range req.Items {
		item, err := s.buildItem(ctx, itemReq, i+1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	subtotal, tax, total, err := s.calc.Totals(items)
	if err != nil {
		return nil, err
	}

	number, err := s.repo.GenerateNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generate offer number: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	validUntil := req.ValidUntil
	if validUntil == nil && s.cfg.DefaultValidity > 0 {
		v := now.Add(s.cfg.DefaultValidity)
		validUntil = &v
	}

	offer := Offer{
		OfferNumber:     number,
		Title:           req.Title,
		Description:     req.Description,
		Status:          OfferStatusDraft,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Currency:        currency,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		TotalAmount:     total,
		ValidUntil:      validUntil,
		InternalNotes:   req.InternalNotes,
		CustomerNotes:   req.CustomerNotes,
		CreatedBy:       actor.ID,
		AssignedTo:      req.AssignedTo,
	}

	var offerID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, offer)
		if err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
		offerID = id
		for _, item := range items {
			item.OfferID = offerID
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert offer item: %w", err)
			}
		}
		entry := HistoryEntry{
			OfferID:          offerID,
			NewStatus:        OfferStatusDraft,
			EventType:        EventCreated,
			EventDescription: "offer created",
			ChangedBy:        actor.idPtr(),
			ChangedByName:    actor.namePtr(),
		}
		if _, err := repo.InsertHistory(ctx, entry); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, offerID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Offer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Offer, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, req ListOffersRequest) ([]Offer, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) History(ctx context.Context, offerID int64) ([]HistoryEntry, error) {
	if _, err := s.repo.Get(ctx, offerID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, offerID)
}

// UpdateHeader edits offer-level fields. Same mutability boundary as items.
func (s *Service) UpdateHeader(ctx context.Context, id int64, req UpdateOfferRequest, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !offer.Status.Mutable() {
		return nil, fmt.Errorf("%w: status is %s", ErrOfferNotMutable, offer.Status)
	}

	if req.Title != nil {
		offer.Title = *req.Title
	}
	if req.Description != nil {
		offer.Description = req.Description
	}
	if req.CustomerName != nil {
		offer.CustomerName = *req.CustomerName
	}
	if req.CustomerEmail != nil {
		offer.CustomerEmail = *req.CustomerEmail
	}
	if req.CustomerPhone != nil {
		offer.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerAddress != nil {
		offer.CustomerAddress = *req.CustomerAddress
	}
	if req.ValidUntil != nil {
		offer.ValidUntil = req.ValidUntil
	}
	if req.InternalNotes != nil {
		offer.InternalNotes = req.InternalNotes
	}
	if req.CustomerNotes != nil {
		offer.CustomerNotes = req.CustomerNotes
	}
	if req.AssignedTo != nil {
		offer.AssignedTo = req.AssignedTo
	}

	if err := s.repo.UpdateOffer(ctx, offer); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes an offer. History and items are preserved for audit.
func (s *Service) Delete(ctx context.Context, id int64) error {
	offer, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id, offer.LockVersion, s.clock.Now())
}

// AddItem snapshots the referenced catalog entity and appends a line. The
// totals rewrite is conditional on the offer's lock version, so concurrent
// item mutations serialize instead of racing the read-modify-write.
func (s *Service) AddItem(ctx context.Context, offerID int64, req AddItemRequest, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.Mutable() {
		return nil, fmt.Errorf("%w: status is %s", ErrOfferNotMutable, offer.Status)
	}

	item, err := s.buildItem(ctx, req, len(offer.Items)+1)
	if err != nil {
		return nil, err
	}
	item.OfferID = offerID

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.InsertItem(ctx, item); err != nil {
			return fmt.Errorf("insert offer item: %w", err)
		}
		return s.recomputeTotals(ctx, repo, offer)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, offerID)
}

// UpdateItem edits a line's price fields and recomputes the derived amounts.
func (s *Service) UpdateItem(ctx context.Context, offerID, itemID int64, req UpdateItemRequest, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.Mutable() {
		return nil, fmt.Errorf("%w: status is %s", ErrOfferNotMutable, offer.Status)
	}

	var item *OfferItem
	for i := range offer.Items {
		if offer.Items[i].ID == itemID {
			item = &offer.Items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		item.UnitPrice = *req.UnitPrice
	}
	if req.DiscountPercent != nil {
		item.DiscountPercent = *req.DiscountPercent
	}
	if req.DiscountAmount != nil {
		item.DiscountAmount = *req.DiscountAmount
	}
	if req.TaxRate != nil {
		item.TaxRate = *req.TaxRate
	}
	if req.TaxMode != nil {
		item.TaxMode = *req.TaxMode
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if err := s.calc.Apply(item); err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateItem(ctx, *item); err != nil {
			return fmt.Errorf("update offer item: %w", err)
		}
		return s.recomputeTotals(ctx, repo, offer)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, offerID)
}

// RemoveItem hard-deletes a line; removed lines carry no audit value
// pre-acceptance.
func (s *Service) RemoveItem(ctx context.Context, offerID, itemID int64, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.Mutable() {
		return nil, fmt.Errorf("%w: status is %s", ErrOfferNotMutable, offer.Status)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteItem(ctx, offerID, itemID); err != nil {
			return err
		}
		return s.recomputeTotals(ctx, repo, offer)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, offerID)
}

// ReorderItems rewrites sort_order from an explicit full ordering. The id set
// must match the offer's items exactly so lines cannot be silently dropped
// or duplicated.
func (s *Service) ReorderItems(ctx context.Context, offerID int64, itemIDs []int64, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Status.Mutable() {
		return nil, fmt.Errorf("%w: status is %s", ErrOfferNotMutable, offer.Status)
	}

	current := make(map[int64]bool, len(offer.Items))
	for _, item := range offer.Items {
		current[item.ID] = true
	}
	if len(itemIDs) != len(offer.Items) {
		return nil, ErrIncompleteOrdering
	}
	order := make(map[int64]int, len(itemIDs))
	for pos, id := range itemIDs {
		if !current[id] {
			return nil, ErrIncompleteOrdering
		}
		if _, dup := order[id]; dup {
			return nil, ErrIncompleteOrdering
		}
		order[id] = pos + 1
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateSortOrders(ctx, offerID, order); err != nil {
			return err
		}
		return repo.UpdateOffer(ctx, offer)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, offerID)
}

// AddNote appends a manual ledger entry without changing status.
func (s *Service) AddNote(ctx context.Context, offerID int64, note string, actor Actor) error {
	offer, err := s.repo.Get(ctx, offerID)
	if err != nil {
		return err
	}
	status := offer.Status
	entry := HistoryEntry{
		OfferID:          offerID,
		PreviousStatus:   &status,
		NewStatus:        status,
		EventType:        EventNoteAdded,
		EventDescription: "manual note",
		Notes:            &note,
		ChangedBy:        actor.idPtr(),
		ChangedByName:    actor.namePtr(),
	}
	_, err = s.repo.InsertHistory(ctx, entry)
	return err
}

// Activate marks a draft ready-to-send and optionally notifies the customer.
func (s *Service) Activate(ctx context.Context, id int64, req TransitionRequest, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(offer.Status, OfferStatusActive); err != nil {
		return nil, err
	}
	prev := offer.Status
	offer.Status = OfferStatusActive

	commSent := false
	if req.NotifyCustomer && offer.CustomerEmail != "" {
		commSent = s.notify(ctx, "offer_activated", offer)
	}

	entry := HistoryEntry{
		OfferID:           id,
		PreviousStatus:    &prev,
		NewStatus:         OfferStatusActive,
		EventType:         EventActivated,
		EventDescription:  "offer activated",
		ChangedBy:         actor.idPtr(),
		ChangedByName:     actor.namePtr(),
		CommunicationSent: commSent,
	}
	if err := s.commitTransition(ctx, offer, entry, nil); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Accept records customer acceptance and attempts to reserve inventory for
// every product line. Partial holds succeed with the shortfall written to the
// ledger; a hard collaborator failure fails the whole transition with no
// partial state retained.
func (s *Service) Accept(ctx context.Context, id int64, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(offer.Status, OfferStatusAccepted); err != nil {
		return nil, err
	}
	if offer.CustomerName == "" || offer.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: customer name and email are required at acceptance", ErrValidation)
	}

	result, err := s.reservations.Reserve(ctx, offer)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	prev := offer.Status
	offer.Status = OfferStatusAccepted
	offer.AcceptedAt = &now
	if result.Held {
		offer.HasReservations = true
		expires := result.ExpiresAt
		offer.ReservationExpiresAt = &expires
	}

	commSent := false
	if offer.CustomerEmail != "" {
		commSent = s.notify(ctx, "offer_accepted", offer)
	}

	impact := result.Impact()
	entry := HistoryEntry{
		OfferID:           id,
		PreviousStatus:    &prev,
		NewStatus:         OfferStatusAccepted,
		EventType:         EventAccepted,
		EventDescription:  "offer accepted by customer",
		ChangedBy:         actor.idPtr(),
		ChangedByName:     actor.namePtr(),
		InventoryImpact:   &impact,
		CommunicationSent: commSent,
	}
	// Item reservation fields are only written when a hold exists, so items
	// without one keep NULL quantities rather than a zero hold.
	var reservedItems []OfferItem
	if result.Held {
		reservedItems = offer.Items
	}
	if err := s.commitTransition(ctx, offer, entry, reservedItems); err != nil {
		// The holds were already placed; give them back so a failed
		// transition leaves no partial state behind.
		if relErr := s.reservations.Release(context.WithoutCancel(ctx), offer); relErr != nil {
			s.logger.Error("release after failed accept", slog.Int64("offer_id", id), slog.Any("error", relErr))
		}
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Complete converts the reservation into a committed stock deduction and
// closes the offer.
func (s *Service) Complete(ctx context.Context, id int64, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(offer.Status, OfferStatusCompleted); err != nil {
		return nil, err
	}

	impact := "no reservation to commit"
	if offer.HasReservations {
		if err := s.reservations.Commit(ctx, offer); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReservationFailure, err)
		}
		impact = "reservation committed to stock"
	}

	now := s.clock.Now()
	prev := offer.Status
	offer.Status = OfferStatusCompleted
	offer.CompletedAt = &now
	offer.HasReservations = false
	offer.ReservationExpiresAt = nil

	entry := HistoryEntry{
		OfferID:          id,
		PreviousStatus:   &prev,
		NewStatus:        OfferStatusCompleted,
		EventType:        EventCompleted,
		EventDescription: "fulfillment confirmed",
		ChangedBy:        actor.idPtr(),
		ChangedByName:    actor.namePtr(),
		InventoryImpact:  &impact,
	}
	if err := s.commitTransition(ctx, offer, entry, clearReservations(offer.Items)); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Cancel closes the offer from active or accepted and releases any held
// reservation.
func (s *Service) Cancel(ctx context.Context, id int64, req TransitionRequest, actor Actor) (*Offer, error) {
	offer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, offer, EventCancelled, req.Reason, actor, false, req.NotifyCustomer)
}

// ExpireDue cancels accepted offers whose reservation horizon has passed.
// Returns how many offers were expired. Conflicts with concurrent writers
// are skipped; the next sweep picks them up.
func (s *Service) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	ids, err := s.repo.ListExpiredAccepted(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		offer, err := s.repo.Get(ctx, id)
		if err != nil {
			s.logger.Warn("expiry sweep: load offer", slog.Int64("offer_id", id), slog.Any("error", err))
			continue
		}
		if !s.reservations.IsExpired(offer, now) {
			continue
		}
		reason := "reservation expired"
		if _, err := s.cancel(ctx, offer, EventExpired, &reason, Actor{}, true, false); err != nil {
			s.logger.Warn("expiry sweep: cancel offer", slog.Int64("offer_id", id), slog.Any("error", err))
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) cancel(ctx context.Context, offer *Offer, event EventType, reason *string, actor Actor, system, notifyCustomer bool) (*Offer, error) {
	if err := checkTransition(offer.Status, OfferStatusCancelled); err != nil {
		return nil, err
	}

	impact := "no reservation held"
	if offer.HasReservations {
		if err := s.reservations.Release(ctx, offer); err != nil {
			impact = fmt.Sprintf("reservation release failed: %v", err)
			s.logger.Error("release reservation", slog.Int64("offer_id", offer.ID), slog.Any("error", err))
		} else {
			impact = "reservation released"
		}
	}

	now := s.clock.Now()
	prev := offer.Status
	offer.Status = OfferStatusCancelled
	offer.CancelledAt = &now
	offer.HasReservations = false
	offer.ReservationExpiresAt = nil

	commSent := false
	if notifyCustomer && offer.CustomerEmail != "" {
		commSent = s.notify(ctx, "offer_cancelled", offer)
	}

	desc := "offer cancelled"
	if event == EventExpired {
		desc = "offer expired without fulfillment"
	}
	entry := HistoryEntry{
		OfferID:           offer.ID,
		PreviousStatus:    &prev,
		NewStatus:         OfferStatusCancelled,
		EventType:         event,
		EventDescription:  desc,
		ChangedBy:         actor.idPtr(),
		ChangedByName:     actor.namePtr(),
		Notes:             reason,
		SystemChange:      system,
		InventoryImpact:   &impact,
		CommunicationSent: commSent,
	}
	if err := s.commitTransition(ctx, offer, entry, clearReservations(offer.Items)); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, offer.ID)
}

// commitTransition persists the status change, the item reservation fields
// and the ledger entry atomically: a failed history write rolls the status
// back.
func (s *Service) commitTransition(ctx context.Context, offer *Offer, entry HistoryEntry, items []OfferItem) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateOffer(ctx, offer); err != nil {
			return err
		}
		for _, item := range items {
			if item.ItemType != ItemTypeProduct {
				continue
			}
			if err := repo.UpdateItemReservation(ctx, item.ID, item.AvailableQuantity, item.ReservedQuantity); err != nil {
				return fmt.Errorf("update item reservation: %w", err)
			}
		}
		if _, err := repo.InsertHistory(ctx, entry); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(offer.Status))
	}
	return nil
}

// recomputeTotals re-derives the offer totals from the items currently in
// the transaction and writes them conditionally on the offer's lock version.
func (s *Service) recomputeTotals(ctx context.Context, repo Repository, offer *Offer) error {
	items, err := repo.ListItems(ctx, offer.ID)
	if err != nil {
		return err
	}
	subtotal, tax, total, err := s.calc.Totals(items)
	if err != nil {
		return err
	}
	offer.Subtotal = subtotal
	offer.TaxAmount = tax
	offer.TotalAmount = total
	return repo.UpdateOffer(ctx, offer)
}

func (s *Service) notify(ctx context.Context, event string, offer *Offer) bool {
	if s.notifier == nil {
		return false
	}
	if err := s.notifier.Notify(ctx, event, offer.ID, offer.CustomerEmail); err != nil {
		s.logger.Warn("customer notification failed",
			slog.String("event", event),
			slog.Int64("offer_id", offer.ID),
			slog.Any("error", err))
		return false
	}
	return true
}

func (s *Service) buildItem(ctx context.Context, req AddItemRequest, sortOrder int) (OfferItem, error) {
	item := OfferItem{
		ItemType:        req.ItemType,
		Quantity:        req.Quantity,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
		TaxMode:         req.TaxMode,
		SortOrder:       sortOrder,
	}

	switch req.ItemType {
	case ItemTypeProduct:
		if req.ProductID == nil {
			return OfferItem{}, fmt.Errorf("%w: product_id is required for product items", ErrValidation)
		}
		snap, err := s.catalog.ResolveProduct(ctx, *req.ProductID)
		if err != nil {
			return OfferItem{}, fmt.Errorf("resolve product %d: %w", *req.ProductID, err)
		}
		item.ProductID = req.ProductID
		item.Title = snap.Title
		if snap.SKU != "" {
			sku := snap.SKU
			item.SKU = &sku
		}
		if snap.Description != "" {
			desc := snap.Description
			item.Description = &desc
		}
		if snap.VariantTitle != "" {
			vt := snap.VariantTitle
			item.VariantTitle = &vt
		}
		item.UnitPrice = snap.Price
		item.TaxRate = snap.TaxRate
	case ItemTypeService:
		if req.ServiceID == nil {
			return OfferItem{}, fmt.Errorf("%w: service_id is required for service items", ErrValidation)
		}
		snap, err := s.catalog.ResolveService(ctx, *req.ServiceID)
		if err != nil {
			return OfferItem{}, fmt.Errorf("resolve service %d: %w", *req.ServiceID, err)
		}
		item.ServiceID = req.ServiceID
		item.Title = snap.Title
		if snap.Description != "" {
			desc := snap.Description
			item.Description = &desc
		}
		item.UnitPrice = snap.Price
		item.TaxRate = snap.TaxRate
	default:
		return OfferItem{}, fmt.Errorf("%w: unknown item type %q", ErrValidation, req.ItemType)
	}

	// Caller overrides beat the catalog snapshot.
	if req.UnitPrice != nil {
		item.UnitPrice = *req.UnitPrice
	}
	if req.TaxRate != nil {
		item.TaxRate = *req.TaxRate
	}
	if req.Description != nil {
		item.Description = req.Description
	}

	if err := s.calc.Apply(&item); err != nil {
		return OfferItem{}, err
	}
	return item, nil
}

func clearReservations(items []OfferItem) []OfferItem {
	cleared := make([]OfferItem, len(items))
	copy(cleared, items)
	for i := range cleared {
		cleared[i].AvailableQuantity = nil
		cleared[i].ReservedQuantity = nil
	}
	return cleared
}
