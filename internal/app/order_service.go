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

// OrderService drives the order lifecycle: validating a reservation
// request, committing it as a pending order, and the pay/cancel
// transitions.  The conflict pre-check here is a fast path only; the
// order store's claim uniqueness is what actually prevents a unit from
// being sold twice.
type OrderService struct {
	orders    OrderStore
	tickets   TicketStore
	users     UserStore
	events    EventStore
	allocator *Allocator
	clk       clock.Clock
	publish   Publisher
}

// NewOrderService returns an OrderService.  publish may be nil to
// disable side-effect events; everything else is required.
func NewOrderService(orders OrderStore, tickets TicketStore, users UserStore, events EventStore, allocator *Allocator, clk clock.Clock, publish Publisher) *OrderService {
	if orders == nil || tickets == nil || users == nil || events == nil || allocator == nil || clk == nil {
		panic("app: NewOrderService requires orders, tickets, users, events, allocator and clock")
	}
	return &OrderService{
		orders:    orders,
		tickets:   tickets,
		users:     users,
		events:    events,
		allocator: allocator,
		clk:       clk,
		publish:   publish,
	}
}

// CreateOrder reserves the requested units as a new pending order.
//
// General-admission lines are resolved to concrete unit IDs first, then
// the combined set is de-duplicated, checked for existence, pre-checked
// against active orders only (a direct order bypasses carts), and
// committed.  The commit rejects units that lost a concurrent race with
// *repository.ClaimConflictError even when the pre-check passed.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, lines []LineRequest) (*model.Order, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if len(lines) == 0 {
		return nil, ErrNoItems
	}

	ids, err := s.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	units, err := s.tickets.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	claimed, err := s.orders.ClaimedTicketIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(claimed) > 0 {
		return nil, &repository.ClaimConflictError{TicketIDs: claimed}
	}

	order, err := s.orders.Create(ctx, userID, units)
	if err != nil {
		return nil, err
	}

	s.publishOrderEvent(ctx, queue.OrderCreated, order)
	s.publishPurchases(ctx, order)
	return order, nil
}

// resolveLines expands GA quantity lines into concrete unit IDs and
// de-duplicates the result, preserving first-seen order.
func (s *OrderService) resolveLines(ctx context.Context, lines []LineRequest) ([]uint64, error) {
	var ids []uint64
	seen := make(map[uint64]struct{}, len(lines))
	for _, l := range lines {
		if l.IsGeneralAdmission() {
			allocated, err := s.allocator.Allocate(ctx, l.eventID, l.quantity)
			if err != nil {
				return nil, err
			}
			for _, id := range allocated {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
			continue
		}
		if _, dup := seen[l.ticketID]; dup {
			continue
		}
		seen[l.ticketID] = struct{}{}
		ids = append(ids, l.ticketID)
	}
	return ids, nil
}

// GetOrder fetches an order with its line items.
func (s *OrderService) GetOrder(ctx context.Context, id uint64) (*model.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// Pay transitions a pending order to paid, stamping the payment time.
// Fails with repository.ErrOrderNotPending when the order is already
// paid or canceled.
func (s *OrderService) Pay(ctx context.Context, id uint64) (*model.Order, error) {
	order, err := s.orders.Pay(ctx, id, s.clk.Now())
	if err != nil {
		return nil, err
	}
	s.publishOrderEvent(ctx, queue.OrderPaid, order)
	return order, nil
}

// Cancel transitions a pending order to canceled, releasing its ticket
// claims back to the available pool.
func (s *OrderService) Cancel(ctx context.Context, id uint64) (*model.Order, error) {
	order, err := s.orders.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishOrderEvent(ctx, queue.OrderCanceled, order)
	return order, nil
}

func (s *OrderService) publishOrderEvent(ctx context.Context, eventType string, order *model.Order) {
	if s.publish == nil {
		return
	}
	ev := queue.OrderEvent{
		Type:            eventType,
		OrderID:         order.ID,
		UserID:          order.UserID,
		EventIDs:        s.eventIDsOf(ctx, order),
		TotalPriceCents: order.TotalPriceCents,
		OccurredAt:      s.clk.Now().Format(time.RFC3339),
	}
	if err := s.publish(ctx, queue.OrderEventsQueue, ev); err != nil {
		log.Printf("order-service: publish %s event for order %d failed: %v", eventType, order.ID, err)
	}
}

// publishPurchases emits one graph-sync fact per distinct event in the
// order.  Failures are logged and swallowed; the order already committed.
func (s *OrderService) publishPurchases(ctx context.Context, order *model.Order) {
	if s.publish == nil {
		return
	}
	now := s.clk.Now().Format(time.RFC3339)
	for _, eventID := range s.eventIDsOf(ctx, order) {
		title := ""
		if ev, err := s.events.GetByID(ctx, eventID); err == nil {
			title = ev.Title
		}
		fact := queue.PurchaseEvent{
			ID:         uuid.NewString(),
			UserID:     order.UserID,
			EventID:    eventID,
			Title:      title,
			OccurredAt: now,
		}
		if err := s.publish(ctx, queue.GraphSyncQueue, fact); err != nil {
			log.Printf("order-service: publish purchase fact for order %d failed: %v", order.ID, err)
		}
	}
}

// eventIDsOf resolves the distinct event IDs behind an order's items.
func (s *OrderService) eventIDsOf(ctx context.Context, order *model.Order) []uint64 {
	ticketIDs := make([]uint64, 0, len(order.Items))
	for _, it := range order.Items {
		ticketIDs = append(ticketIDs, it.TicketID)
	}
	units, err := s.tickets.FindByIDs(ctx, ticketIDs)
	if err != nil {
		return nil
	}
	var ids []uint64
	seen := make(map[uint64]struct{}, len(units))
	for _, u := range units {
		if _, ok := seen[u.EventID]; ok {
			continue
		}
		seen[u.EventID] = struct{}{}
		ids = append(ids, u.EventID)
	}
	return ids
}
