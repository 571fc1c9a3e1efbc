package app

import (
	"context"
	"sort"
	"strconv"

	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// AvailabilityService answers "which ticket units of an event can still
// be reserved".  A unit is excluded while a pending or paid order claims
// it, or while it sits in any user's live cart hold.
type AvailabilityService struct {
	tickets TicketStore
	orders  OrderStore
	holds   HoldStore
}

// NewAvailabilityService returns an AvailabilityService over the given
// stores.  All three are required.
func NewAvailabilityService(tickets TicketStore, orders OrderStore, holds HoldStore) *AvailabilityService {
	if tickets == nil || orders == nil || holds == nil {
		panic("app: NewAvailabilityService requires tickets, orders and holds")
	}
	return &AvailabilityService{tickets: tickets, orders: orders, holds: holds}
}

// Exclusions returns the set of ticket unit IDs of the event that are
// currently unavailable: claimed by an active order or held in a cart.
// The snapshot is advisory; the storage layer remains the authority on
// conflicts at commit time.
func (s *AvailabilityService) Exclusions(ctx context.Context, eventID uint64) (map[uint64]struct{}, error) {
	reserved, err := s.orders.ReservedTicketIDs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	held, err := s.holds.AllHeldTicketIDs(ctx)
	if err != nil {
		return nil, err
	}
	excluded := make(map[uint64]struct{}, len(reserved)+len(held))
	for _, id := range reserved {
		excluded[id] = struct{}{}
	}
	for id := range held {
		excluded[id] = struct{}{}
	}
	return excluded, nil
}

// AvailabilityRow is one row of the availability listing.  Seat units
// appear individually with Available=1; all remaining general-admission
// units collapse into a single synthetic row with ID "GA" carrying the
// price of the first GA unit and the remaining count.
type AvailabilityRow struct {
	ID         string `json:"id"`
	Seat       string `json:"seat,omitempty"`
	PriceCents uint32 `json:"price_cents"`
	Available  int    `json:"available"`
}

// ListAvailable returns the availability view of an event: matching units
// minus the exclusion set, GA grouped into one row, sorted GA-first and
// then by seat label.  When no GA unit remains the GA row is omitted
// entirely rather than emitted with a zero count.
func (s *AvailabilityService) ListAvailable(ctx context.Context, eventID uint64, f repository.TicketFilter) ([]AvailabilityRow, error) {
	units, err := s.tickets.ListByEvent(ctx, eventID, f)
	if err != nil {
		return nil, err
	}
	excluded, err := s.Exclusions(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var rows []AvailabilityRow
	gaCount := 0
	var gaPrice uint32
	for _, u := range units {
		if _, ok := excluded[u.ID]; ok {
			continue
		}
		if u.IsGeneralAdmission() {
			if gaCount == 0 {
				gaPrice = u.PriceCents
			}
			gaCount++
			continue
		}
		seat := ""
		if u.Seat != nil {
			seat = *u.Seat
		}
		rows = append(rows, AvailabilityRow{
			ID:         strconv.FormatUint(u.ID, 10),
			Seat:       seat,
			PriceCents: u.PriceCents,
			Available:  1,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Seat < rows[j].Seat })
	if gaCount > 0 {
		rows = append([]AvailabilityRow{{ID: "GA", PriceCents: gaPrice, Available: gaCount}}, rows...)
	}
	return rows, nil
}
