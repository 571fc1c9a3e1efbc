package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mantasj/ticket-marketplace/internal/model"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// In-memory stand-ins for the MySQL and Redis stores.  The order and
// hold fakes enforce the same per-unit claim uniqueness as the real
// stores so conflict paths behave identically.

// stepClock is a Clock whose instant tests advance by hand.
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time { return c.t }

func (c *stepClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeTickets struct {
	mu    sync.Mutex
	units map[uint64]model.TicketUnit
}

func newFakeTickets(units ...model.TicketUnit) *fakeTickets {
	f := &fakeTickets{units: make(map[uint64]model.TicketUnit)}
	for _, u := range units {
		f.units[u.ID] = u
	}
	return f
}

func (f *fakeTickets) FindByIDs(_ context.Context, ids []uint64) ([]model.TicketUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TicketUnit
	var missing []uint64
	for _, id := range ids {
		u, ok := f.units[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, u)
	}
	if len(missing) > 0 {
		return nil, &repository.TicketsNotFoundError{Missing: missing}
	}
	return out, nil
}

func (f *fakeTickets) ListByEvent(_ context.Context, eventID uint64, flt repository.TicketFilter) ([]model.TicketUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TicketUnit
	for _, u := range f.units {
		if u.EventID != eventID {
			continue
		}
		switch flt.Kind {
		case "":
		case "GA":
			if !u.IsGeneralAdmission() {
				continue
			}
		default:
			if u.IsGeneralAdmission() {
				continue
			}
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeOrders struct {
	mu      sync.Mutex
	tickets *fakeTickets
	seq     uint64
	orders  map[uint64]*model.Order
	claims  map[uint64]uint64 // ticket unit -> claiming order
}

func newFakeOrders(tickets *fakeTickets) *fakeOrders {
	return &fakeOrders{
		tickets: tickets,
		orders:  make(map[uint64]*model.Order),
		claims:  make(map[uint64]uint64),
	}
}

func (f *fakeOrders) Create(_ context.Context, userID uint64, units []model.TicketUnit) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var conflicts []uint64
	for _, u := range units {
		if _, taken := f.claims[u.ID]; taken {
			conflicts = append(conflicts, u.ID)
		}
	}
	if len(conflicts) > 0 {
		return nil, &repository.ClaimConflictError{TicketIDs: conflicts}
	}

	f.seq++
	now := time.Now().UTC()
	order := &model.Order{
		ID:        f.seq,
		UserID:    userID,
		Status:    model.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, u := range units {
		order.TotalPriceCents += u.PriceCents
		order.Items = append(order.Items, model.OrderItem{
			ID:         order.ID*100 + uint64(i),
			OrderID:    order.ID,
			TicketID:   u.ID,
			PriceCents: u.PriceCents,
			Kind:       u.Kind,
			Seat:       u.Seat,
		})
		f.claims[u.ID] = order.ID
	}
	f.orders[order.ID] = order
	return cloneOrder(order), nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (f *fakeOrders) Pay(_ context.Context, id uint64, now time.Time) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status != model.OrderPending {
		return nil, repository.ErrOrderNotPending
	}
	order.Status = model.OrderPaid
	order.PaidAt = &now
	order.UpdatedAt = now
	return cloneOrder(order), nil
}

func (f *fakeOrders) Cancel(_ context.Context, id uint64) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status != model.OrderPending {
		return nil, repository.ErrOrderNotPending
	}
	order.Status = model.OrderCanceled
	order.PaidAt = nil
	order.UpdatedAt = time.Now().UTC()
	for _, it := range order.Items {
		delete(f.claims, it.TicketID)
	}
	return cloneOrder(order), nil
}

func (f *fakeOrders) ReservedTicketIDs(_ context.Context, eventID uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint64
	for ticketID := range f.claims {
		f.tickets.mu.Lock()
		u, ok := f.tickets.units[ticketID]
		f.tickets.mu.Unlock()
		if ok && u.EventID == eventID {
			out = append(out, ticketID)
		}
	}
	return out, nil
}

func (f *fakeOrders) ClaimedTicketIDs(_ context.Context, ids []uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint64
	for _, id := range ids {
		if _, ok := f.claims[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// fakeHolds mirrors the Redis hold registry including its sliding TTL:
// every mutation restamps the owning cart's deadline, and carts whose
// deadline has passed vanish from every read, exactly as expired keys
// do.  The clock is injected so tests can advance time.
type fakeHolds struct {
	mu       sync.Mutex
	now      func() time.Time
	carts    map[uint64]map[uint64]struct{}
	owner    map[uint64]uint64    // ticket unit -> holding user
	deadline map[uint64]time.Time // user -> cart expiry
}

func newFakeHolds(now func() time.Time) *fakeHolds {
	return &fakeHolds{
		now:      now,
		carts:    make(map[uint64]map[uint64]struct{}),
		owner:    make(map[uint64]uint64),
		deadline: make(map[uint64]time.Time),
	}
}

// prune drops every expired cart.  Callers must hold mu.
func (f *fakeHolds) prune() {
	t := f.now()
	for user, dl := range f.deadline {
		if dl.After(t) {
			continue
		}
		for id := range f.carts[user] {
			delete(f.owner, id)
		}
		delete(f.carts, user)
		delete(f.deadline, user)
	}
}

func (f *fakeHolds) Add(_ context.Context, userID uint64, ticketIDs []uint64, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prune()
	var conflicts []uint64
	for _, id := range ticketIDs {
		if owner, held := f.owner[id]; held && owner != userID {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return &repository.ClaimConflictError{TicketIDs: conflicts}
	}
	cart := f.carts[userID]
	if cart == nil {
		cart = make(map[uint64]struct{})
		f.carts[userID] = cart
	}
	for _, id := range ticketIDs {
		f.owner[id] = userID
		cart[id] = struct{}{}
	}
	f.deadline[userID] = f.now().Add(ttl)
	return nil
}

func (f *fakeHolds) Remove(_ context.Context, userID, ticketID uint64, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prune()
	cart := f.carts[userID]
	if _, ok := cart[ticketID]; !ok {
		return false, nil
	}
	delete(cart, ticketID)
	delete(f.owner, ticketID)
	f.deadline[userID] = f.now().Add(ttl)
	return true, nil
}

func (f *fakeHolds) Clear(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prune()
	for id := range f.carts[userID] {
		delete(f.owner, id)
	}
	delete(f.carts, userID)
	delete(f.deadline, userID)
	return nil
}

func (f *fakeHolds) Members(_ context.Context, userID uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prune()
	var out []uint64
	for id := range f.carts[userID] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeHolds) AllHeldTicketIDs(_ context.Context) (map[uint64]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prune()
	out := make(map[uint64]struct{}, len(f.owner))
	for id := range f.owner {
		out[id] = struct{}{}
	}
	return out, nil
}

type fakeUsers struct {
	ids map[uint64]struct{}
}

func newFakeUsers(ids ...uint64) *fakeUsers {
	f := &fakeUsers{ids: make(map[uint64]struct{})}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	return f
}

func (f *fakeUsers) Exists(_ context.Context, id uint64) (bool, error) {
	_, ok := f.ids[id]
	return ok, nil
}

type fakeEvents struct {
	events map[uint64]*model.Event
}

func newFakeEvents(events ...*model.Event) *fakeEvents {
	f := &fakeEvents{events: make(map[uint64]*model.Event)}
	for _, ev := range events {
		f.events[ev.ID] = ev
	}
	return f
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return ev, nil
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	return &c
}

func strPtr(s string) *string { return &s }

// gaUnit and seatUnit build inventory rows for test fixtures.
func gaUnit(id, eventID uint64, price uint32) model.TicketUnit {
	return model.TicketUnit{ID: id, EventID: eventID, Kind: model.KindGeneralAdmission, PriceCents: price}
}

func seatUnit(id, eventID uint64, seat string, price uint32) model.TicketUnit {
	return model.TicketUnit{ID: id, EventID: eventID, Kind: model.KindSeat, Seat: strPtr(seat), PriceCents: price}
}
