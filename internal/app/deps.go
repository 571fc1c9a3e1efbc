// Package app contains the reservation core: availability resolution,
// general-admission allocation, the order lifecycle and the cart.  Services
// here depend on small consumer-side interfaces so the underlying MySQL and
// Redis stores can be swapped for fakes in tests.
package app

import (
	"context"
	"time"

	"github.com/mantasj/ticket-marketplace/internal/model"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// TicketStore exposes the durable ticket inventory.
type TicketStore interface {
	// FindByIDs resolves ticket units by ID, preserving request order, and
	// returns *repository.TicketsNotFoundError when any are unknown.
	FindByIDs(ctx context.Context, ids []uint64) ([]model.TicketUnit, error)
	// ListByEvent returns all units of an event matching the filter.
	ListByEvent(ctx context.Context, eventID uint64, f repository.TicketFilter) ([]model.TicketUnit, error)
}

// OrderStore exposes the durable order collection.  Create is the commit
// point of a reservation: it must reject, with *repository.ClaimConflictError,
// any unit concurrently claimed by another active order.
type OrderStore interface {
	Create(ctx context.Context, userID uint64, units []model.TicketUnit) (*model.Order, error)
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	Pay(ctx context.Context, id uint64, now time.Time) (*model.Order, error)
	Cancel(ctx context.Context, id uint64) (*model.Order, error)
	// ReservedTicketIDs returns units claimed by pending or paid orders of
	// the event.
	ReservedTicketIDs(ctx context.Context, eventID uint64) ([]uint64, error)
	// ClaimedTicketIDs returns the subset of ids claimed by an active order.
	ClaimedTicketIDs(ctx context.Context, ids []uint64) ([]uint64, error)
}

// HoldStore exposes the TTL-scoped cart holds.  Add must reject, with
// *repository.ClaimConflictError, any unit currently held by another user.
type HoldStore interface {
	Add(ctx context.Context, userID uint64, ticketIDs []uint64, ttl time.Duration) error
	Remove(ctx context.Context, userID, ticketID uint64, ttl time.Duration) (bool, error)
	Clear(ctx context.Context, userID uint64) error
	Members(ctx context.Context, userID uint64) ([]uint64, error)
	AllHeldTicketIDs(ctx context.Context) (map[uint64]struct{}, error)
}

// UserStore is the slice of the user repository the core needs.
type UserStore interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// EventStore is the slice of the event repository the core needs.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// Publisher sends a payload to a named broker queue.  Publishing is
// best-effort: services log and continue when it fails.
type Publisher func(ctx context.Context, queueName string, payload interface{}) error
