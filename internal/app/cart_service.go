package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mantasj/ticket-marketplace/internal/clock"
	"github.com/mantasj/ticket-marketplace/internal/model"
	"github.com/mantasj/ticket-marketplace/internal/queue"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// CartService is the hold registry: a per-user set of ticket unit IDs
// with a sliding TTL.  A held unit is excluded from availability for
// everyone else but is not yet sold; checkout converts the whole set
// into a paid order.
type CartService struct {
	holds     HoldStore
	tickets   TicketStore
	orders    OrderStore
	allocator *Allocator
	orderSvc  *OrderService
	ttl       time.Duration
	clk       clock.Clock
	publish   Publisher
}

// NewCartService returns a CartService.  ttl is the sliding hold
// lifetime refreshed on every cart mutation; publish may be nil.
func NewCartService(holds HoldStore, tickets TicketStore, orders OrderStore, allocator *Allocator, orderSvc *OrderService, ttl time.Duration, clk clock.Clock, publish Publisher) *CartService {
	if holds == nil || tickets == nil || orders == nil || allocator == nil || orderSvc == nil || clk == nil {
		panic("app: NewCartService requires holds, tickets, orders, allocator, order service and clock")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CartService{
		holds:     holds,
		tickets:   tickets,
		orders:    orders,
		allocator: allocator,
		orderSvc:  orderSvc,
		ttl:       ttl,
		clk:       clk,
		publish:   publish,
	}
}

// AddGA allocates quantity general-admission units for the event and
// holds them for the user.  The allocator's exclusion set includes other
// users' holds, and the hold store's per-unit claim keys reject any unit
// that was grabbed between allocation and hold.
func (s *CartService) AddGA(ctx context.Context, userID, eventID uint64, quantity int) ([]uint64, error) {
	ids, err := s.allocator.Allocate(ctx, eventID, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.holds.Add(ctx, userID, ids, s.ttl); err != nil {
		return nil, err
	}
	s.publishCartActivity(ctx, userID, queue.ActionCartAdd, ids)
	return ids, nil
}

// AddSeat holds one specific ticket unit for the user.  Unknown units
// fail with *repository.TicketsNotFoundError; units claimed by an active
// order or another user's hold fail with *repository.ClaimConflictError.
// Re-adding a unit the user already holds succeeds as a no-op, still
// refreshing the TTL.
func (s *CartService) AddSeat(ctx context.Context, userID, ticketID uint64) error {
	if _, err := s.tickets.FindByIDs(ctx, []uint64{ticketID}); err != nil {
		return err
	}
	claimed, err := s.orders.ClaimedTicketIDs(ctx, []uint64{ticketID})
	if err != nil {
		return err
	}
	if len(claimed) > 0 {
		return &repository.ClaimConflictError{TicketIDs: claimed}
	}
	if err := s.holds.Add(ctx, userID, []uint64{ticketID}, s.ttl); err != nil {
		return err
	}
	s.publishCartActivity(ctx, userID, queue.ActionCartAdd, []uint64{ticketID})
	return nil
}

// Remove drops one unit from the user's cart, reporting whether it was
// present.  Removing an absent unit is not an error.
func (s *CartService) Remove(ctx context.Context, userID, ticketID uint64) (bool, error) {
	removed, err := s.holds.Remove(ctx, userID, ticketID, s.ttl)
	if err != nil {
		return false, err
	}
	if removed {
		s.publishCartActivity(ctx, userID, queue.ActionCartRemove, []uint64{ticketID})
	}
	return removed, nil
}

// Clear empties the user's cart and releases every hold.
func (s *CartService) Clear(ctx context.Context, userID uint64) error {
	return s.holds.Clear(ctx, userID)
}

// CartView is the current cart contents with live prices.
type CartView struct {
	Items           []model.TicketUnit `json:"items"`
	TotalPriceCents uint32             `json:"total_price_cents"`
}

// Get returns the user's current cart.  Prices come from the ticket
// store at read time; they are only snapshotted when checkout creates
// the order.
func (s *CartService) Get(ctx context.Context, userID uint64) (*CartView, error) {
	ids, err := s.holds.Members(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &CartView{Items: []model.TicketUnit{}}
	if len(ids) == 0 {
		return view, nil
	}
	units, err := s.tickets.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		view.Items = append(view.Items, u)
		view.TotalPriceCents += u.PriceCents
	}
	return view, nil
}

// Checkout converts the user's cart into an order and pays it
// immediately.  Fails with ErrEmptyCart on an empty cart.  If order
// creation fails, for example because another path claimed a held unit,
// the cart is left untouched so the user can adjust it; holds are
// cleared only once the order has committed and taken over the claims.
func (s *CartService) Checkout(ctx context.Context, userID uint64) (*model.Order, error) {
	ids, err := s.holds.Members(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]LineRequest, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, Specific(id))
	}
	order, err := s.orderSvc.CreateOrder(ctx, userID, lines)
	if err != nil {
		return nil, err
	}

	if err := s.holds.Clear(ctx, userID); err != nil {
		log.Printf("cart-service: clear holds for user %d after checkout failed: %v", userID, err)
	}
	return s.orderSvc.Pay(ctx, order.ID)
}

// publishCartActivity emits one activity fact per unit, best-effort.
func (s *CartService) publishCartActivity(ctx context.Context, userID uint64, action string, ids []uint64) {
	if s.publish == nil {
		return
	}
	units, err := s.tickets.FindByIDs(ctx, ids)
	if err != nil {
		log.Printf("cart-service: resolve units for activity failed: %v", err)
		return
	}
	now := s.clk.Now().Format(time.RFC3339)
	for _, u := range units {
		seat := ""
		if u.Seat != nil {
			seat = *u.Seat
		}
		ev := queue.ActivityEvent{
			ID:         uuid.NewString(),
			UserID:     userID,
			Action:     action,
			TicketID:   u.ID,
			EventID:    u.EventID,
			Kind:       string(u.Kind),
			Seat:       seat,
			PriceCents: u.PriceCents,
			OccurredAt: now,
		}
		if err := s.publish(ctx, queue.ActivityQueue, ev); err != nil {
			log.Printf("cart-service: publish %s activity failed: %v", action, err)
		}
	}
}
