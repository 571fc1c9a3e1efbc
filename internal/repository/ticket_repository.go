package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mantasj/ticket-marketplace/internal/model"
)

// TicketRepo is the durable ticket store.  Rows are created once, in bulk,
// when an event is created, and are never deleted afterwards; orders and
// holds only reference them by ID.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// InventorySpec describes the fixed inventory generated for a new event.
// The defaults mirror the standard venue setup: 100 GA units and two
// lettered rows of 50 seats each.
type InventorySpec struct {
	GACount        int
	GAPriceCents   uint32
	SeatRows       []string
	SeatsPerRow    int
	SeatPriceCents uint32
}

// DefaultInventorySpec returns the inventory generated when an event
// creation request does not override the layout.
func DefaultInventorySpec() InventorySpec {
	return InventorySpec{
		GACount:        100,
		GAPriceCents:   2500,
		SeatRows:       []string{"A", "B"},
		SeatsPerRow:    50,
		SeatPriceCents: 3500,
	}
}

// CreateInventoryTx generates and persists the full inventory for an
// event in one bulk insert inside the provided transaction.  The caller
// owns the transaction, so a failure here rolls back the event row too
// and an event is never left with a partial inventory.  Returns the
// created units with their generated IDs.
func (r *TicketRepo) CreateInventoryTx(ctx context.Context, tx *sql.Tx, eventID uint64, spec InventorySpec) ([]model.TicketUnit, error) {
	units := make([]model.TicketUnit, 0, spec.GACount+len(spec.SeatRows)*spec.SeatsPerRow)
	for i := 0; i < spec.GACount; i++ {
		units = append(units, model.TicketUnit{
			EventID:    eventID,
			Kind:       model.KindGeneralAdmission,
			PriceCents: spec.GAPriceCents,
		})
	}
	for _, row := range spec.SeatRows {
		for n := 1; n <= spec.SeatsPerRow; n++ {
			label := fmt.Sprintf("%s%d", row, n)
			units = append(units, model.TicketUnit{
				EventID:    eventID,
				Kind:       model.KindSeat,
				Seat:       &label,
				PriceCents: spec.SeatPriceCents,
			})
		}
	}
	if len(units) == 0 {
		return units, nil
	}

	query := `INSERT INTO tickets (event_id, kind, seat, price_cents) VALUES `
	args := make([]interface{}, 0, len(units)*4)
	for i, u := range units {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		var seat interface{}
		if u.Seat != nil {
			seat = *u.Seat
		}
		args = append(args, u.EventID, string(u.Kind), seat, u.PriceCents)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	// MySQL guarantees consecutive auto-increment IDs for a multi-row
	// insert, so the first insert id anchors the whole batch.
	firstID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for i := range units {
		units[i].ID = uint64(firstID) + uint64(i)
	}
	return units, nil
}

const ticketCols = "id, event_id, kind, seat, price_cents, created_at"

// FindByIDs resolves the given ticket unit IDs.  When any ID is unknown
// it returns a TicketsNotFoundError listing the missing ones so callers
// can reject the whole reservation request up front.
func (r *TicketRepo) FindByIDs(ctx context.Context, ids []uint64) ([]model.TicketUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := "SELECT " + ticketCols + " FROM tickets WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uint64]model.TicketUnit, len(ids))
	for rows.Next() {
		u, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byID) != len(ids) {
		var missing []uint64
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, &TicketsNotFoundError{Missing: missing}
	}
	// Preserve request order.
	units := make([]model.TicketUnit, 0, len(ids))
	for _, id := range ids {
		units = append(units, byID[id])
	}
	return units, nil
}

// TicketFilter narrows ListByEvent results.  Kind of "" means both kinds.
// SeatPrefix matches seat labels case-insensitively; the special values
// "GA", "GENERAL" and "GENERAL ADMISSION" select general-admission units
// instead, mirroring how older clients queried the seat field.
type TicketFilter struct {
	Kind          model.TicketKind
	MinPriceCents *uint32
	MaxPriceCents *uint32
	SeatPrefix    string
}

// gaAliases are seat-filter values treated as "general admission".
var gaAliases = map[string]bool{"GA": true, "GENERAL": true, "GENERAL ADMISSION": true}

// gaCondition selects units that count as general admission: the kind
// column is authoritative, a seat label of exactly "GA" is accepted for
// rows imported from older data sets.
const gaCondition = "(kind = 'GA' OR UPPER(seat) = 'GA')"

// ListByEvent returns all ticket units of an event matching the filter,
// ordered GA first and then by seat label.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64, f TicketFilter) ([]model.TicketUnit, error) {
	where := []string{"event_id = ?"}
	args := []interface{}{eventID}
	switch f.Kind {
	case model.KindGeneralAdmission:
		where = append(where, gaCondition)
	case model.KindSeat:
		where = append(where, "NOT "+gaCondition)
	}
	if f.MinPriceCents != nil {
		where = append(where, "price_cents >= ?")
		args = append(args, *f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		where = append(where, "price_cents <= ?")
		args = append(args, *f.MaxPriceCents)
	}
	if p := strings.ToUpper(strings.TrimSpace(f.SeatPrefix)); p != "" && p != "ALL" {
		if gaAliases[p] {
			where = append(where, gaCondition)
		} else {
			where = append(where, "UPPER(seat) LIKE ?")
			args = append(args, p+"%")
		}
	}

	q := "SELECT " + ticketCols + " FROM tickets WHERE " + strings.Join(where, " AND ") +
		" ORDER BY kind = 'GA' DESC, seat"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []model.TicketUnit
	for rows.Next() {
		u, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

func scanTicket(s rowScanner) (model.TicketUnit, error) {
	var u model.TicketUnit
	var kind string
	var seat sql.NullString
	if err := s.Scan(&u.ID, &u.EventID, &kind, &seat, &u.PriceCents, &u.CreatedAt); err != nil {
		return model.TicketUnit{}, err
	}
	u.Kind = model.TicketKind(kind)
	if seat.Valid {
		lbl := seat.String
		u.Seat = &lbl
	}
	return u, nil
}
