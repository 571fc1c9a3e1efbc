package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mantasj/ticket-marketplace/internal/model"
)

// EventRepo provides CRUD operations for events and venues.  Event
// creation happens inside a caller-supplied transaction so the handler
// can generate the ticket inventory atomically with the event row; a
// partial inventory never commits.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions
// that span events and tickets.
func (r *EventRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new event within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided model.  The caller must commit or roll back.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	const q = `INSERT INTO events (organizer_id, venue_id, title, description, event_date) VALUES (?, ?, ?, ?, ?)`
	var desc interface{}
	if ev.Description != nil {
		desc = *ev.Description
	}
	res, err := tx.ExecContext(ctx, q, ev.OrganizerID, ev.VenueID, ev.Title, desc, ev.EventDate.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM events WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, ev.ID).Scan(&ev.CreatedAt, &ev.UpdatedAt)
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, organizer_id, venue_id, title, description, event_date, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.OrganizerID, &ev.VenueID, &ev.Title, &desc, &ev.EventDate, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		ev.Description = &d
	}
	return &ev, nil
}

// EventFilter narrows List results.  Zero values mean "no constraint".
type EventFilter struct {
	OrganizerID uint64
	VenueID     uint64
	DateFrom    *time.Time
	DateTo      *time.Time
	Query       string // case-insensitive title substring
	Sort        string // column to sort by; defaults to event_date
	Desc        bool
	Page        int
	Limit       int
}

// sortColumns whitelists the sortable columns so user input never
// reaches the ORDER BY clause directly.
var sortColumns = map[string]string{
	"eventDate":  "event_date",
	"event_date": "event_date",
	"title":      "title",
	"createdAt":  "created_at",
	"created_at": "created_at",
}

// List returns events matching the filter plus the total match count.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]model.Event, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if f.OrganizerID != 0 {
		where = append(where, "organizer_id = ?")
		args = append(args, f.OrganizerID)
	}
	if f.VenueID != 0 {
		where = append(where, "venue_id = ?")
		args = append(args, f.VenueID)
	}
	if f.DateFrom != nil {
		where = append(where, "event_date >= ?")
		args = append(args, f.DateFrom.UTC().Format("2006-01-02 15:04:05"))
	}
	if f.DateTo != nil {
		where = append(where, "event_date <= ?")
		args = append(args, f.DateTo.UTC().Format("2006-01-02 15:04:05"))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+q+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := sortColumns[f.Sort]
	if !ok {
		sortCol = "event_date"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	q := `SELECT id, organizer_id, venue_id, title, description, event_date, created_at, updated_at
	      FROM events WHERE ` + cond + ` ORDER BY ` + sortCol + ` ` + dir + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var desc sql.NullString
		if err := rows.Scan(&ev.ID, &ev.OrganizerID, &ev.VenueID, &ev.Title, &desc, &ev.EventDate, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if desc.Valid {
			d := desc.String
			ev.Description = &d
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// VenueExists reports whether the venue id references a row.
func (r *EventRepo) VenueExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM venues WHERE id=? LIMIT 1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListVenues returns all venues ordered by name.
func (r *EventRepo) ListVenues(ctx context.Context) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, address, capacity, created_at FROM venues ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var v model.Venue
		var addr sql.NullString
		var cap sql.NullInt64
		if err := rows.Scan(&v.ID, &v.Name, &addr, &cap, &v.CreatedAt); err != nil {
			return nil, err
		}
		if addr.Valid {
			a := addr.String
			v.Address = &a
		}
		if cap.Valid {
			c := uint32(cap.Int64)
			v.Capacity = &c
		}
		venues = append(venues, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return venues, nil
}
