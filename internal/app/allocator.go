package app

import (
	"context"
	"sort"

	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// Allocator resolves "N general-admission units" requests into N concrete
// ticket unit IDs.  Units are fungible, so any subset works; ascending
// IDs are chosen for a stable, reproducible selection.
type Allocator struct {
	tickets      TicketStore
	availability *AvailabilityService
}

// NewAllocator returns an Allocator over the given ticket store and
// availability resolver.
func NewAllocator(tickets TicketStore, availability *AvailabilityService) *Allocator {
	if tickets == nil || availability == nil {
		panic("app: NewAllocator requires tickets and availability")
	}
	return &Allocator{tickets: tickets, availability: availability}
}

// Allocate picks quantity unreserved GA unit IDs for the event, lowest
// IDs first.  It consults the same exclusion set as the availability
// listing (active orders plus live holds) and fails with
// *InsufficientError when fewer than quantity units remain.  The
// selection is a snapshot: the caller's subsequent claim can still lose
// the race and must handle the storage-level conflict.
func (a *Allocator) Allocate(ctx context.Context, eventID uint64, quantity int) ([]uint64, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	units, err := a.tickets.ListByEvent(ctx, eventID, repository.TicketFilter{Kind: "GA"})
	if err != nil {
		return nil, err
	}
	excluded, err := a.availability.Exclusions(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var free []uint64
	for _, u := range units {
		if _, ok := excluded[u.ID]; ok {
			continue
		}
		free = append(free, u.ID)
	}
	if len(free) < quantity {
		return nil, &InsufficientError{Requested: quantity, Available: len(free)}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] < free[j] })
	return free[:quantity], nil
}
