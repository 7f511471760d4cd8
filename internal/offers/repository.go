package offers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partshub/partshub/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Offer, error)
	GetByNumber(ctx context.Context, number string) (*Offer, error)
	List(ctx context.Context, req ListOffersRequest) ([]Offer, int, error)
	Create(ctx context.Context, offer Offer) (int64, error)
	// UpdateOffer writes the offer's mutable columns conditionally on
	// LockVersion and increments it on success. A stale version yields
	// ErrConcurrentModification.
	UpdateOffer(ctx context.Context, offer *Offer) error
	SoftDelete(ctx context.Context, id, lockVersion int64, at time.Time) error
	ListItems(ctx context.Context, offerID int64) ([]OfferItem, error)
	InsertItem(ctx context.Context, item OfferItem) (int64, error)
	UpdateItem(ctx context.Context, item OfferItem) error
	UpdateItemReservation(ctx context.Context, itemID int64, available, reserved *int64) error
	DeleteItem(ctx context.Context, offerID, itemID int64) error
	UpdateSortOrders(ctx context.Context, offerID int64, order map[int64]int) error
	InsertHistory(ctx context.Context, entry HistoryEntry) (int64, error)
	ListHistory(ctx context.Context, offerID int64) ([]HistoryEntry, error)
	ListExpiredAccepted(ctx context.Context, now time.Time, limit int) ([]int64, error)
	GenerateNumber(ctx context.Context, date time.Time) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{db: tx, pool: r.pool}
		return fn(ctx, repoTx)
	})
}

const offerColumns = `id, offer_number, title, description, status,
	customer_name, customer_email, customer_phone, customer_address,
	currency, subtotal, tax_amount, total_amount, valid_until,
	internal_notes, customer_notes, created_by, assigned_to,
	has_reservations, reservation_expires_at,
	accepted_at, completed_at, cancelled_at,
	lock_version, created_at, updated_at, deleted_at`

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(
		&o.ID, &o.OfferNumber, &o.Title, &o.Description, &o.Status,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.CustomerAddress,
		&o.Currency, &o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.ValidUntil,
		&o.InternalNotes, &o.CustomerNotes, &o.CreatedBy, &o.AssignedTo,
		&o.HasReservations, &o.ReservationExpiresAt,
		&o.AcceptedAt, &o.CompletedAt, &o.CancelledAt,
		&o.LockVersion, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Offer, error) {
	query := fmt.Sprintf("SELECT %s FROM offers WHERE id = $1 AND deleted_at IS NULL", offerColumns)
	offer, err := scanOffer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	offer.Items = items
	return offer, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Offer, error) {
	query := fmt.Sprintf("SELECT %s FROM offers WHERE offer_number = $1 AND deleted_at IS NULL", offerColumns)
	offer, err := scanOffer(r.db.QueryRow(ctx, query, number))
	if err != nil {
		return nil, err
	}
	items, err := r.ListItems(ctx, offer.ID)
	if err != nil {
		return nil, err
	}
	offer.Items = items
	return offer, nil
}

func (r *repository) List(ctx context.Context, req ListOffersRequest) ([]Offer, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.Query != nil && *req.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(offer_number ILIKE $%d OR title ILIKE $%d OR customer_name ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+*req.Query+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM offers %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM offers %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		offerColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, 0, err
		}
		offers = append(offers, *offer)
	}
	return offers, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o Offer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO offers (
			offer_number, title, description, status,
			customer_name, customer_email, customer_phone, customer_address,
			currency, subtotal, tax_amount, total_amount, valid_until,
			internal_notes, customer_notes, created_by, assigned_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`,
		o.OfferNumber, o.Title, o.Description, o.Status,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.CustomerAddress,
		o.Currency, o.Subtotal, o.TaxAmount, o.TotalAmount, o.ValidUntil,
		o.InternalNotes, o.CustomerNotes, o.CreatedBy, o.AssignedTo,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateOffer(ctx context.Context, o *Offer) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE offers SET
			title = $1, description = $2, status = $3,
			customer_name = $4, customer_email = $5, customer_phone = $6, customer_address = $7,
			subtotal = $8, tax_amount = $9, total_amount = $10, valid_until = $11,
			internal_notes = $12, customer_notes = $13, assigned_to = $14,
			has_reservations = $15, reservation_expires_at = $16,
			accepted_at = $17, completed_at = $18, cancelled_at = $19,
			lock_version = lock_version + 1, updated_at = NOW()
		WHERE id = $20 AND lock_version = $21 AND deleted_at IS NULL
	`,
		o.Title, o.Description, o.Status,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.CustomerAddress,
		o.Subtotal, o.TaxAmount, o.TotalAmount, o.ValidUntil,
		o.InternalNotes, o.CustomerNotes, o.AssignedTo,
		o.HasReservations, o.ReservationExpiresAt,
		o.AcceptedAt, o.CompletedAt, o.CancelledAt,
		o.ID, o.LockVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	o.LockVersion++
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id, lockVersion int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE offers SET deleted_at = $1, lock_version = lock_version + 1, updated_at = NOW()
		WHERE id = $2 AND lock_version = $3 AND deleted_at IS NULL
	`, at, id, lockVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, offerID int64) ([]OfferItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, offer_id, item_type, product_id, service_id, sku, title,
		       description, variant_title, quantity, unit_price,
		       discount_percent, discount_amount, tax_rate, tax_mode,
		       tax_amount, total_price, sort_order,
		       available_quantity, reserved_quantity, created_at, updated_at
		FROM offer_items
		WHERE offer_id = $1
		ORDER BY sort_order, id
	`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OfferItem
	for rows.Next() {
		var it OfferItem
		err := rows.Scan(
			&it.ID, &it.OfferID, &it.ItemType, &it.ProductID, &it.ServiceID, &it.SKU, &it.Title,
			&it.Description, &it.VariantTitle, &it.Quantity, &it.UnitPrice,
			&it.DiscountPercent, &it.DiscountAmount, &it.TaxRate, &it.TaxMode,
			&it.TaxAmount, &it.TotalPrice, &it.SortOrder,
			&it.AvailableQuantity, &it.ReservedQuantity, &it.CreatedAt, &it.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) InsertItem(ctx context.Context, it OfferItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO offer_items (
			offer_id, item_type, product_id, service_id, sku, title,
			description, variant_title, quantity, unit_price,
			discount_percent, discount_amount, tax_rate, tax_mode,
			tax_amount, total_price, sort_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`,
		it.OfferID, it.ItemType, it.ProductID, it.ServiceID, it.SKU, it.Title,
		it.Description, it.VariantTitle, it.Quantity, it.UnitPrice,
		it.DiscountPercent, it.DiscountAmount, it.TaxRate, it.TaxMode,
		it.TaxAmount, it.TotalPrice, it.SortOrder,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateItem(ctx context.Context, it OfferItem) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE offer_items SET
			quantity = $1, unit_price = $2, discount_percent = $3, discount_amount = $4,
			tax_rate = $5, tax_mode = $6, tax_amount = $7, total_price = $8,
			description = $9, updated_at = NOW()
		WHERE id = $10 AND offer_id = $11
	`,
		it.Quantity, it.UnitPrice, it.DiscountPercent, it.DiscountAmount,
		it.TaxRate, it.TaxMode, it.TaxAmount, it.TotalPrice,
		it.Description, it.ID, it.OfferID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateItemReservation(ctx context.Context, itemID int64, available, reserved *int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE offer_items SET available_quantity = $1, reserved_quantity = $2, updated_at = NOW()
		WHERE id = $3
	`, available, reserved, itemID)
	return err
}

func (r *repository) DeleteItem(ctx context.Context, offerID, itemID int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM offer_items WHERE id = $1 AND offer_id = $2", itemID, offerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateSortOrders(ctx context.Context, offerID int64, order map[int64]int) error {
	for itemID, pos := range order {
		tag, err := r.db.Exec(ctx, `
			UPDATE offer_items SET sort_order = $1, updated_at = NOW()
			WHERE id = $2 AND offer_id = $3
		`, pos, itemID, offerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (r *repository) InsertHistory(ctx context.Context, e HistoryEntry) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO offer_status_history (
			offer_id, previous_status, new_status, event_type, event_description,
			changed_by, changed_by_name, notes, system_change,
			inventory_impact, communication_sent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		e.OfferID, e.PreviousStatus, e.NewStatus, e.EventType, e.EventDescription,
		e.ChangedBy, e.ChangedByName, e.Notes, e.SystemChange,
		e.InventoryImpact, e.CommunicationSent,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) ListHistory(ctx context.Context, offerID int64) ([]HistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, offer_id, previous_status, new_status, event_type, event_description,
		       changed_by, changed_by_name, notes, system_change,
		       inventory_impact, communication_sent, created_at, updated_at
		FROM offer_status_history
		WHERE offer_id = $1
		ORDER BY created_at, id
	`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		err := rows.Scan(
			&e.ID, &e.OfferID, &e.PreviousStatus, &e.NewStatus, &e.EventType, &e.EventDescription,
			&e.ChangedBy, &e.ChangedByName, &e.Notes, &e.SystemChange,
			&e.InventoryImpact, &e.CommunicationSent, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) ListExpiredAccepted(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id FROM offers
		WHERE status = $1 AND has_reservations AND reservation_expires_at < $2 AND deleted_at IS NULL
		ORDER BY reservation_expires_at
		LIMIT $3
	`, OfferStatusAccepted, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GenerateNumber allocates the next date-coded offer number, e.g.
// OF-2609-0042. The sequence upsert keeps allocation safe under concurrent
// creation.
func (r *repository) GenerateNumber(ctx context.Context, date time.Time) (string, error) {
	var seq int64
	period := date.Format("200601")
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "OF", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("OF-%s-%04d", date.Format("0601"), seq), nil
}
