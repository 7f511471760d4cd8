package offers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/partshub/partshub/internal/clock"
)

// memRepo is an in-memory Repository with the same optimistic-locking
// semantics as the SQL implementation.
type memRepo struct {
	offers    map[int64]*Offer
	items     map[int64]*OfferItem
	history   []HistoryEntry
	sequences map[string]int64

	nextOfferID int64
	nextItemID  int64
	nextHistID  int64

	// onUpdateOffer runs before the version check, simulating a concurrent
	// writer that slips in between read and write.
	onUpdateOffer func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		offers:    map[int64]*Offer{},
		items:     map[int64]*OfferItem{},
		sequences: map[string]int64{},
	}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memRepo) Get(_ context.Context, id int64) (*Offer, error) {
	o, ok := r.offers[id]
	if !ok || o.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = r.itemsOf(id)
	return &cp, nil
}

func (r *memRepo) GetByNumber(_ context.Context, number string) (*Offer, error) {
	for id, o := range r.offers {
		if o.OfferNumber == number && o.DeletedAt == nil {
			return r.Get(context.Background(), id)
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) List(_ context.Context, req ListOffersRequest) ([]Offer, int, error) {
	var out []Offer
	for id, o := range r.offers {
		if o.DeletedAt != nil {
			continue
		}
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		cp := *o
		cp.Items = r.itemsOf(id)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memRepo) Create(_ context.Context, o Offer) (int64, error) {
	r.nextOfferID++
	o.ID = r.nextOfferID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.offers[o.ID] = &o
	return o.ID, nil
}

func (r *memRepo) UpdateOffer(_ context.Context, o *Offer) error {
	if r.onUpdateOffer != nil {
		hook := r.onUpdateOffer
		r.onUpdateOffer = nil
		hook()
	}
	stored, ok := r.offers[o.ID]
	if !ok || stored.DeletedAt != nil || stored.LockVersion != o.LockVersion {
		return ErrConcurrentModification
	}
	cp := *o
	cp.Items = nil
	cp.LockVersion = stored.LockVersion + 1
	cp.CreatedAt = stored.CreatedAt
	cp.UpdatedAt = time.Now()
	r.offers[o.ID] = &cp
	o.LockVersion++
	return nil
}

func (r *memRepo) SoftDelete(_ context.Context, id, lockVersion int64, at time.Time) error {
	stored, ok := r.offers[id]
	if !ok || stored.DeletedAt != nil || stored.LockVersion != lockVersion {
		return ErrConcurrentModification
	}
	stored.DeletedAt = &at
	stored.LockVersion++
	return nil
}

func (r *memRepo) itemsOf(offerID int64) []OfferItem {
	var items []OfferItem
	for _, it := range r.items {
		if it.OfferID == offerID {
			items = append(items, *it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func (r *memRepo) ListItems(_ context.Context, offerID int64) ([]OfferItem, error) {
	return r.itemsOf(offerID), nil
}

func (r *memRepo) InsertItem(_ context.Context, it OfferItem) (int64, error) {
	r.nextItemID++
	it.ID = r.nextItemID
	r.items[it.ID] = &it
	return it.ID, nil
}

func (r *memRepo) UpdateItem(_ context.Context, it OfferItem) error {
	stored, ok := r.items[it.ID]
	if !ok || stored.OfferID != it.OfferID {
		return ErrNotFound
	}
	it.CreatedAt = stored.CreatedAt
	r.items[it.ID] = &it
	return nil
}

func (r *memRepo) UpdateItemReservation(_ context.Context, itemID int64, available, reserved *int64) error {
	stored, ok := r.items[itemID]
	if !ok {
		return ErrNotFound
	}
	stored.AvailableQuantity = available
	stored.ReservedQuantity = reserved
	return nil
}

func (r *memRepo) DeleteItem(_ context.Context, offerID, itemID int64) error {
	stored, ok := r.items[itemID]
	if !ok || stored.OfferID != offerID {
		return ErrNotFound
	}
	delete(r.items, itemID)
	return nil
}

func (r *memRepo) UpdateSortOrders(_ context.Context, offerID int64, order map[int64]int) error {
	for itemID, pos := range order {
		stored, ok := r.items[itemID]
		if !ok || stored.OfferID != offerID {
			return ErrNotFound
		}
		stored.SortOrder = pos
	}
	return nil
}

func (r *memRepo) InsertHistory(_ context.Context, e HistoryEntry) (int64, error) {
	r.nextHistID++
	e.ID = r.nextHistID
	e.CreatedAt = time.Now()
	r.history = append(r.history, e)
	return e.ID, nil
}

func (r *memRepo) ListHistory(_ context.Context, offerID int64) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, e := range r.history {
		if e.OfferID == offerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) ListExpiredAccepted(_ context.Context, now time.Time, limit int) ([]int64, error) {
	var ids []int64
	for id, o := range r.offers {
		if o.DeletedAt != nil || o.Status != OfferStatusAccepted || !o.HasReservations {
			continue
		}
		if o.ReservationExpiresAt != nil && o.ReservationExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *memRepo) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	period := date.Format("200601")
	r.sequences[period]++
	return fmt.Sprintf("OF-%s-%04d", date.Format("0601"), r.sequences[period]), nil
}

type fakeCatalog struct {
	products map[int64]ProductSnapshot
	services map[int64]ServiceSnapshot
}

func (c *fakeCatalog) ResolveProduct(_ context.Context, id int64) (ProductSnapshot, error) {
	snap, ok := c.products[id]
	if !ok {
		return ProductSnapshot{}, ErrNotFound
	}
	return snap, nil
}

func (c *fakeCatalog) ResolveService(_ context.Context, id int64) (ServiceSnapshot, error) {
	snap, ok := c.services[id]
	if !ok {
		return ServiceSnapshot{}, ErrNotFound
	}
	return snap, nil
}

type fakeNotifier struct {
	events []string
	fail   bool
}

func (n *fakeNotifier) Notify(_ context.Context, event string, _ int64, _ string) error {
	if n.fail {
		return errors.New("smtp down")
	}
	n.events = append(n.events, event)
	return nil
}

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type fakeTransitionObserver struct {
	byStatus map[string]int
}

func (o *fakeTransitionObserver) ObserveTransition(to string) {
	if o.byStatus == nil {
		o.byStatus = map[string]int{}
	}
	o.byStatus[to]++
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	inv      *fakeInventory
	notifier *fakeNotifier
	observer *fakeTransitionObserver
}

func newFixture(stock map[int64]int64) *fixture {
	repo := newMemRepo()
	inv := newFakeInventory(stock)
	notifier := &fakeNotifier{}
	observer := &fakeTransitionObserver{}
	cat := &fakeCatalog{
		products: map[int64]ProductSnapshot{
			1: {SKU: "BRK-PAD-1", Title: "Brake Pad Set", Price: 5000, TaxRate: 19},
			2: {SKU: "BRK-DSC-2", Title: "Brake Disc", Price: 8000, TaxRate: 19},
		},
		services: map[int64]ServiceSnapshot{
			5: {Title: "Installation", Price: 6500, TaxRate: 19},
		},
	}
	clk := clock.NewFixed(testNow)
	coord := NewCoordinator(inv, 7*24*time.Hour, time.Second, clk)
	calc := NewCalculator(19, TaxInclusive)
	svc := NewService(repo, cat, coord, notifier, calc, observer, clk,
		slog.New(slog.DiscardHandler),
		ServiceConfig{DefaultCurrency: "EUR", DefaultValidity: 30 * 24 * time.Hour})
	return &fixture{svc: svc, repo: repo, inv: inv, notifier: notifier, observer: observer}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) createBrakeJobOffer(t *testing.T) *Offer {
	t.Helper()
	offer, err := f.svc.Create(context.Background(), CreateOfferRequest{
		Title:         "Brake job",
		CustomerName:  "Dana Weber",
		CustomerEmail: "dana@example.com",
		Items: []AddItemRequest{
			{ItemType: ItemTypeProduct, ProductID: ptr[int64](1), Quantity: 2, DiscountPercent: 10},
			{ItemType: ItemTypeProduct, ProductID: ptr[int64](2), Quantity: 1},
		},
	}, Actor{ID: 7, Name: "sales"})
	require.NoError(t, err)
	return offer
}

func (f *fixture) activate(t *testing.T, id int64) *Offer {
	t.Helper()
	offer, err := f.svc.Activate(context.Background(), id, TransitionRequest{}, Actor{ID: 7})
	require.NoError(t, err)
	return offer
}

func TestCreateOffer(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	require.Equal(t, "OF-2609-0001", offer.OfferNumber)
	require.Equal(t, OfferStatusDraft, offer.Status)
	require.Equal(t, "EUR", offer.Currency)
	require.EqualValues(t, 17000, offer.TotalAmount)
	require.EqualValues(t, 2714, offer.TaxAmount)
	require.EqualValues(t, 14286, offer.Subtotal)
	require.Len(t, offer.Items, 2)
	require.Equal(t, "Brake Pad Set", offer.Items[0].Title)
	require.NotNil(t, offer.ValidUntil)
	require.Equal(t, testNow.Add(30*24*time.Hour), *offer.ValidUntil)

	history, err := f.svc.History(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, EventCreated, history[0].EventType)
	require.Nil(t, history[0].PreviousStatus)
	require.EqualValues(t, 7, *history[0].ChangedBy)
}

func TestCreateOfferUnknownProduct(t *testing.T) {
	f := newFixture(map[int64]int64{})
	_, err := f.svc.Create(context.Background(), CreateOfferRequest{
		Title:        "Bad",
		CustomerName: "X",
		Items:        []AddItemRequest{{ItemType: ItemTypeProduct, ProductID: ptr[int64](99), Quantity: 1}},
	}, Actor{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddItemRecomputesTotals(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	updated, err := f.svc.AddItem(context.Background(), offer.ID, AddItemRequest{
		ItemType: ItemTypeService, ServiceID: ptr[int64](5), Quantity: 1,
	}, Actor{})
	require.NoError(t, err)
	require.Len(t, updated.Items, 3)
	require.EqualValues(t, 23500, updated.TotalAmount)
	require.Greater(t, updated.LockVersion, offer.LockVersion)
}

func TestItemEditsRejectedAfterAcceptance(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)
	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)

	_, err = f.svc.AddItem(context.Background(), offer.ID, AddItemRequest{
		ItemType: ItemTypeService, ServiceID: ptr[int64](5), Quantity: 1,
	}, Actor{})
	require.ErrorIs(t, err, ErrOfferNotMutable)

	_, err = f.svc.UpdateItem(context.Background(), offer.ID, offer.Items[0].ID, UpdateItemRequest{Quantity: ptr[int64](5)}, Actor{})
	require.ErrorIs(t, err, ErrOfferNotMutable)

	_, err = f.svc.RemoveItem(context.Background(), offer.ID, offer.Items[0].ID, Actor{})
	require.ErrorIs(t, err, ErrOfferNotMutable)
}

func TestUpdateItemPriceOverride(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	updated, err := f.svc.UpdateItem(context.Background(), offer.ID, offer.Items[1].ID, UpdateItemRequest{
		UnitPrice: ptr[int64](9000),
	}, Actor{})
	require.NoError(t, err)
	require.EqualValues(t, 18000, updated.TotalAmount)
}

func TestUpdateMissingItem(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	_, err := f.svc.UpdateItem(context.Background(), offer.ID, 9999, UpdateItemRequest{Quantity: ptr[int64](1)}, Actor{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReorderItems(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)
	first, second := offer.Items[0].ID, offer.Items[1].ID

	updated, err := f.svc.ReorderItems(context.Background(), offer.ID, []int64{second, first}, Actor{})
	require.NoError(t, err)
	require.Equal(t, second, updated.Items[0].ID)
	require.Equal(t, first, updated.Items[1].ID)
}

func TestReorderItemsIncompleteSet(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)
	first := offer.Items[0].ID

	_, err := f.svc.ReorderItems(context.Background(), offer.ID, []int64{first}, Actor{})
	require.ErrorIs(t, err, ErrIncompleteOrdering)

	_, err = f.svc.ReorderItems(context.Background(), offer.ID, []int64{first, 9999}, Actor{})
	require.ErrorIs(t, err, ErrIncompleteOrdering)

	_, err = f.svc.ReorderItems(context.Background(), offer.ID, []int64{first, first}, Actor{})
	require.ErrorIs(t, err, ErrIncompleteOrdering)
}

func TestActivateNotifiesCustomer(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	activated, err := f.svc.Activate(context.Background(), offer.ID, TransitionRequest{NotifyCustomer: true}, Actor{ID: 7})
	require.NoError(t, err)
	require.Equal(t, OfferStatusActive, activated.Status)
	require.Equal(t, []string{"offer_activated"}, f.notifier.events)

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	last := history[len(history)-1]
	require.Equal(t, EventActivated, last.EventType)
	require.True(t, last.CommunicationSent)
}

func TestNotificationFailureDoesNotBlockTransition(t *testing.T) {
	f := newFixture(map[int64]int64{})
	f.notifier.fail = true
	offer := f.createBrakeJobOffer(t)

	activated, err := f.svc.Activate(context.Background(), offer.ID, TransitionRequest{NotifyCustomer: true}, Actor{})
	require.NoError(t, err)
	require.Equal(t, OfferStatusActive, activated.Status)

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	require.False(t, history[len(history)-1].CommunicationSent)
}

func TestAcceptFromDraftRejected(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAcceptRequiresCustomerContact(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer, err := f.svc.Create(context.Background(), CreateOfferRequest{
		Title:        "No contact",
		CustomerName: "Dana Weber",
	}, Actor{})
	require.NoError(t, err)
	f.activate(t, offer.ID)

	_, err = f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAcceptReservesInventory(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)

	accepted, err := f.svc.Accept(context.Background(), offer.ID, Actor{ID: 7})
	require.NoError(t, err)
	require.Equal(t, OfferStatusAccepted, accepted.Status)
	require.True(t, accepted.HasReservations)
	require.NotNil(t, accepted.AcceptedAt)
	require.NotNil(t, accepted.ReservationExpiresAt)
	require.Equal(t, testNow.Add(7*24*time.Hour), *accepted.ReservationExpiresAt)
	require.EqualValues(t, 2, *accepted.Items[0].ReservedQuantity)

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	last := history[len(history)-1]
	require.Equal(t, EventAccepted, last.EventType)
	require.Equal(t, "all product lines fully reserved", *last.InventoryImpact)
}

func TestAcceptPartialReservation(t *testing.T) {
	f := newFixture(map[int64]int64{1: 1, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)

	accepted, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)
	require.Equal(t, OfferStatusAccepted, accepted.Status)
	require.True(t, accepted.HasReservations)
	require.EqualValues(t, 1, *accepted.Items[0].ReservedQuantity)

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	require.Contains(t, *history[len(history)-1].InventoryImpact, "partial reservation")
}

func TestAcceptHardReservationFailure(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	f.inv.failReserve[2] = errors.New("connection refused")
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)

	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.ErrorIs(t, err, ErrReservationFailure)

	current, err := f.svc.Get(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, OfferStatusActive, current.Status)
	require.False(t, current.HasReservations)
	require.EqualValues(t, 10, f.inv.stock[1])
}

func TestCompleteCommitsReservation(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)
	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)

	completed, err := f.svc.Complete(context.Background(), offer.ID, Actor{ID: 7})
	require.NoError(t, err)
	require.Equal(t, OfferStatusCompleted, completed.Status)
	require.False(t, completed.HasReservations)
	require.Nil(t, completed.ReservationExpiresAt)
	require.NotNil(t, completed.CompletedAt)
	require.Nil(t, completed.Items[0].ReservedQuantity)
	require.EqualValues(t, 2, f.inv.commits[1])
	require.EqualValues(t, 1, f.inv.commits[2])

	// Terminal: completing again is an invalid transition, not a double deduct.
	_, err = f.svc.Complete(context.Background(), offer.ID, Actor{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.EqualValues(t, 2, f.inv.commits[1])
}

func TestCancelReleasesReservation(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)
	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), offer.ID, TransitionRequest{Reason: ptr("customer backed out")}, Actor{ID: 7})
	require.NoError(t, err)
	require.Equal(t, OfferStatusCancelled, cancelled.Status)
	require.False(t, cancelled.HasReservations)
	require.NotNil(t, cancelled.CancelledAt)
	require.EqualValues(t, 10, f.inv.stock[1])

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	last := history[len(history)-1]
	require.Equal(t, EventCancelled, last.EventType)
	require.Equal(t, "reservation released", *last.InventoryImpact)
	require.Equal(t, "customer backed out", *last.Notes)
	require.False(t, last.SystemChange)
}

func TestCancelActiveWithoutReservation(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)

	cancelled, err := f.svc.Cancel(context.Background(), offer.ID, TransitionRequest{}, Actor{})
	require.NoError(t, err)
	require.Equal(t, OfferStatusCancelled, cancelled.Status)

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	require.Equal(t, "no reservation held", *history[len(history)-1].InventoryImpact)
}

func TestCancelNotifiesWhenRequested(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)

	_, err := f.svc.Cancel(context.Background(), offer.ID, TransitionRequest{NotifyCustomer: true}, Actor{})
	require.NoError(t, err)
	require.Contains(t, f.notifier.events, "offer_cancelled")

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	require.True(t, history[len(history)-1].CommunicationSent)
}

func TestExpireDueSweep(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)
	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)

	// Not yet due.
	count, err := f.svc.ExpireDue(context.Background(), testNow.Add(24*time.Hour), 100)
	require.NoError(t, err)
	require.Zero(t, count)

	// Past the horizon.
	count, err = f.svc.ExpireDue(context.Background(), testNow.Add(8*24*time.Hour), 100)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	current, err := f.svc.Get(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, OfferStatusCancelled, current.Status)
	require.EqualValues(t, 10, f.inv.stock[1])

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	last := history[len(history)-1]
	require.Equal(t, EventExpired, last.EventType)
	require.True(t, last.SystemChange)
	require.Nil(t, last.ChangedBy)
}

func TestConcurrentHeaderEditConflict(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	f.repo.onUpdateOffer = func() {
		f.repo.offers[offer.ID].LockVersion++
	}

	_, err := f.svc.UpdateHeader(context.Background(), offer.ID, UpdateOfferRequest{Title: ptr("Renamed")}, Actor{})
	require.ErrorIs(t, err, ErrConcurrentModification)
}

func TestConcurrentItemAddConflict(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	f.repo.onUpdateOffer = func() {
		f.repo.offers[offer.ID].LockVersion++
	}

	_, err := f.svc.AddItem(context.Background(), offer.ID, AddItemRequest{
		ItemType: ItemTypeService, ServiceID: ptr[int64](5), Quantity: 1,
	}, Actor{})
	require.ErrorIs(t, err, ErrConcurrentModification)
}

func TestAddNoteKeepsStatus(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	require.NoError(t, f.svc.AddNote(context.Background(), offer.ID, "called the customer", Actor{ID: 7, Name: "sales"}))

	current, err := f.svc.Get(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, OfferStatusDraft, current.Status)

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	last := history[len(history)-1]
	require.Equal(t, EventNoteAdded, last.EventType)
	require.Equal(t, last.NewStatus, *last.PreviousStatus)
	require.Equal(t, "called the customer", *last.Notes)
}

func TestSoftDeleteHidesOffer(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	require.NoError(t, f.svc.Delete(context.Background(), offer.ID))

	_, err := f.svc.Get(context.Background(), offer.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// Rows are preserved underneath the soft delete.
	require.NotNil(t, f.repo.offers[offer.ID].DeletedAt)
	require.NotEmpty(t, f.repo.history)
}

func TestHistoryReplaysLifecycle(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)
	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	types := make([]EventType, 0, len(history))
	for _, e := range history {
		types = append(types, e.EventType)
	}
	require.Equal(t, []EventType{EventCreated, EventActivated, EventAccepted, EventCompleted}, types)

	// Each entry's previous status chains to the one before it.
	for i := 1; i < len(history); i++ {
		require.Equal(t, history[i-1].NewStatus, *history[i].PreviousStatus)
	}
}

func TestOfferNumbersIncrementWithinPeriod(t *testing.T) {
	f := newFixture(map[int64]int64{})
	first := f.createBrakeJobOffer(t)
	second := f.createBrakeJobOffer(t)
	require.Equal(t, "OF-2609-0001", first.OfferNumber)
	require.Equal(t, "OF-2609-0002", second.OfferNumber)
}

func TestCreateOfferOptionalTextStaysNil(t *testing.T) {
	f := newFixture(map[int64]int64{})
	offer := f.createBrakeJobOffer(t)

	// No description or notes were supplied and the catalog snapshots carry
	// none, so the pointers stay nil end to end. The columns are nullable for
	// the same reason: a nil pointer binds as NULL, not as the column default.
	require.Nil(t, offer.Description)
	require.Nil(t, offer.InternalNotes)
	require.Nil(t, offer.CustomerNotes)
	for _, item := range offer.Items {
		require.Nil(t, item.Description)
	}
}

func TestAcceptWithNoStockKeepsItemFieldsNil(t *testing.T) {
	f := newFixture(map[int64]int64{1: 0, 2: 0})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)

	accepted, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)
	require.Equal(t, OfferStatusAccepted, accepted.Status)
	require.False(t, accepted.HasReservations)
	require.Nil(t, accepted.ReservationExpiresAt)
	for _, item := range accepted.Items {
		require.Nil(t, item.AvailableQuantity)
		require.Nil(t, item.ReservedQuantity)
	}

	history, _ := f.repo.ListHistory(context.Background(), offer.ID)
	require.Equal(t, "no stock available, nothing reserved", *history[len(history)-1].InventoryImpact)
}

func TestTransitionsAreObserved(t *testing.T) {
	f := newFixture(map[int64]int64{1: 10, 2: 10})
	offer := f.createBrakeJobOffer(t)
	f.activate(t, offer.ID)
	_, err := f.svc.Accept(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), offer.ID, Actor{})
	require.NoError(t, err)

	require.Equal(t, map[string]int{
		"ACTIVE":    1,
		"ACCEPTED":  1,
		"COMPLETED": 1,
	}, f.observer.byStatus)

	// A rejected transition records nothing.
	_, err = f.svc.Complete(context.Background(), offer.ID, Actor{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, 1, f.observer.byStatus["COMPLETED"])
}
