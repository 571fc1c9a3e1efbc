package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mantasj/ticket-marketplace/internal/model"
)

// ErrOrderNotPending is returned by Pay and Cancel when the order exists
// but is no longer in the pending state.  Both transitions are
// conditional updates, so a second pay or a cancel after payment observes
// zero affected rows and fails with this error.
var ErrOrderNotPending = errors.New("order not pending")

// OrderRepo persists orders, their line items and the ticket claims that
// make reservations exclusive.  The claim insert shares the transaction
// with the order insert; the ticket_claims primary key is what actually
// guarantees that no ticket unit is referenced by two active orders, no
// matter what any earlier availability check concluded.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create persists a new pending order for the given units.  The unit
// prices must already be the stored ticket prices; the total is computed
// here from those lines.  When one or more units are already claimed by
// another active order the whole transaction rolls back and a
// ClaimConflictError lists the offenders.
func (r *OrderRepo) Create(ctx context.Context, userID uint64, units []model.TicketUnit) (*model.Order, error) {
	total := uint32(0)
	for _, u := range units {
		total += u.PriceCents
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, status, total_price_cents) VALUES (?, 'pending', ?)",
		userID, total)
	if err != nil {
		return nil, err
	}
	orderID64, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	orderID := uint64(orderID64)

	itemQ := "INSERT INTO order_items (order_id, ticket_id, price_cents, kind, seat) VALUES "
	itemArgs := make([]interface{}, 0, len(units)*5)
	claimQ := "INSERT INTO ticket_claims (ticket_id, event_id, order_id) VALUES "
	claimArgs := make([]interface{}, 0, len(units)*3)
	for i, u := range units {
		if i > 0 {
			itemQ += ","
			claimQ += ","
		}
		itemQ += "(?, ?, ?, ?, ?)"
		var seat interface{}
		if u.Seat != nil {
			seat = *u.Seat
		}
		itemArgs = append(itemArgs, orderID, u.ID, u.PriceCents, string(u.Kind), seat)
		claimQ += "(?, ?, ?)"
		claimArgs = append(claimArgs, u.ID, u.EventID, orderID)
	}
	if _, err := tx.ExecContext(ctx, itemQ, itemArgs...); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, claimQ, claimArgs...); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			_ = tx.Rollback()
			ids := make([]uint64, 0, len(units))
			for _, u := range units {
				ids = append(ids, u.ID)
			}
			conflicting, cErr := r.ClaimedTicketIDs(ctx, ids)
			if cErr != nil || len(conflicting) == 0 {
				// Could not enumerate; report the whole requested set.
				conflicting = ids
			}
			return nil, &ClaimConflictError{TicketIDs: conflicting}
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, orderID)
}

// GetByID loads an order together with its line items, or
// ErrOrderNotFound.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	const q = `SELECT id, user_id, status, total_price_cents, paid_at, created_at, updated_at
	           FROM orders WHERE id = ?`
	var o model.Order
	var status string
	var paidAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID, &o.UserID, &status, &o.TotalPriceCents, &paidAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}

	const itemQ = `SELECT id, order_id, ticket_id, price_cents, kind, seat
	               FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, itemQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		var kind string
		var seat sql.NullString
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TicketID, &it.PriceCents, &kind, &seat); err != nil {
			return nil, err
		}
		it.Kind = model.TicketKind(kind)
		if seat.Valid {
			lbl := seat.String
			it.Seat = &lbl
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Pay transitions a pending order to paid and stamps the payment time.
// The UPDATE is conditional on the current status, so concurrent or
// repeated pay calls cannot double-apply; losers observe
// ErrOrderNotPending (or ErrOrderNotFound when the id is unknown).
func (r *OrderRepo) Pay(ctx context.Context, id uint64, now time.Time) (*model.Order, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status='paid', paid_at=? WHERE id=? AND status='pending'",
		now.UTC().Format("2006-01-02 15:04:05"), id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrOrderNotPending
	}
	return r.GetByID(ctx, id)
}

// Cancel transitions a pending order to canceled and releases its ticket
// claims so the units become available again.  Claims are deleted in the
// same transaction as the status flip.
func (r *OrderRepo) Cancel(ctx context.Context, id uint64) (*model.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status='canceled', paid_at=NULL WHERE id=? AND status='pending'", id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrOrderNotPending
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM ticket_claims WHERE order_id=?", id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return r.GetByID(ctx, id)
}

// ReservedTicketIDs returns the ticket units of an event referenced by
// any pending or paid order.  This is the order half of the exclusion
// set; cancels delete their claims so canceled orders do not appear.
func (r *OrderRepo) ReservedTicketIDs(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT ticket_id FROM ticket_claims WHERE event_id = ?", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClaimedTicketIDs reports which of the given ticket units are currently
// claimed by an active order.  Used as the fast-path conflict check
// before committing a new order; the claim insert remains authoritative.
func (r *OrderRepo) ClaimedTicketIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT ticket_id FROM ticket_claims WHERE ticket_id IN ("+strings.Join(placeholders, ",")+")",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var claimed []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		claimed = append(claimed, id)
	}
	return claimed, rows.Err()
}

// PaidItemsByEvent aggregates revenue and sold-unit counts per event over
// paid orders.  It backs the analytics endpoints; results are cached by
// the caller.
func (r *OrderRepo) PaidItemsByEvent(ctx context.Context, limit int) ([]EventSales, error) {
	const q = `SELECT t.event_id, e.title, e.event_date, SUM(oi.price_cents), COUNT(*)
	           FROM order_items oi
	           JOIN orders o ON o.id = oi.order_id
	           JOIN tickets t ON t.id = oi.ticket_id
	           JOIN events e ON e.id = t.event_id
	           WHERE o.status = 'paid'
	           GROUP BY t.event_id, e.title, e.event_date
	           ORDER BY SUM(oi.price_cents) DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []EventSales
	for rows.Next() {
		var s EventSales
		if err := rows.Scan(&s.EventID, &s.Title, &s.EventDate, &s.RevenueCents, &s.TicketsSold); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// EventSales is one analytics row: revenue and units sold for an event.
type EventSales struct {
	EventID      uint64    `json:"event_id"`
	Title        string    `json:"title"`
	EventDate    time.Time `json:"event_date"`
	RevenueCents uint64    `json:"revenue_cents"`
	TicketsSold  int       `json:"tickets_sold"`
}
