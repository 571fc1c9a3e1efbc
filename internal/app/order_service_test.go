package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantasj/ticket-marketplace/internal/model"
	"github.com/mantasj/ticket-marketplace/internal/queue"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

type published struct {
	queue   string
	payload interface{}
}

type testEnv struct {
	tickets  *fakeTickets
	orders   *fakeOrders
	holds    *fakeHolds
	clk      *stepClock
	avail    *AvailabilityService
	alloc    *Allocator
	orderSvc *OrderService
	cart     *CartService
	msgs     []published
}

// newTestEnv wires the services over the in-memory fakes with users 1-3
// registered and the given inventory under event 1.
func newTestEnv(units ...model.TicketUnit) *testEnv {
	clk := &stepClock{t: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)}
	env := &testEnv{
		tickets: newFakeTickets(units...),
		holds:   newFakeHolds(clk.Now),
		clk:     clk,
	}
	env.orders = newFakeOrders(env.tickets)
	users := newFakeUsers(1, 2, 3)
	events := newFakeEvents(&model.Event{ID: 1, Title: "Midnight Run"})
	publish := func(_ context.Context, q string, payload interface{}) error {
		env.msgs = append(env.msgs, published{queue: q, payload: payload})
		return nil
	}
	env.avail = NewAvailabilityService(env.tickets, env.orders, env.holds)
	env.alloc = NewAllocator(env.tickets, env.avail)
	env.orderSvc = NewOrderService(env.orders, env.tickets, users, events, env.alloc, clk, publish)
	env.cart = NewCartService(env.holds, env.tickets, env.orders, env.alloc, env.orderSvc, 15*time.Minute, clk, publish)
	return env
}

func (env *testEnv) queued(queueName string) []published {
	var out []published
	for _, m := range env.msgs {
		if m.queue == queueName {
			out = append(out, m)
		}
	}
	return out
}

func TestCreateOrderComputesTotalServerSide(t *testing.T) {
	env := newTestEnv(
		seatUnit(10, 1, "A1", 3500),
		seatUnit(11, 1, "A2", 4200),
	)

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10), Specific(11)})
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, uint32(7700), order.TotalPriceCents)
	require.Len(t, order.Items, 2)
	var sum uint32
	for _, it := range order.Items {
		sum += it.PriceCents
	}
	assert.Equal(t, order.TotalPriceCents, sum)
	assert.Nil(t, order.PaidAt)
}

func TestCreateOrderUnknownUser(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	_, err := env.orderSvc.CreateOrder(context.Background(), 99, []LineRequest{Specific(10)})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestCreateOrderNoItems(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	_, err := env.orderSvc.CreateOrder(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreateOrderDeduplicatesRepeatedIDs(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10), Specific(10), Specific(10)})
	require.NoError(t, err)

	assert.Len(t, order.Items, 1)
	assert.Equal(t, uint32(3500), order.TotalPriceCents)
}

func TestCreateOrderReportsMissingTickets(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	_, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10), Specific(77), Specific(78)})

	var notFound *repository.TicketsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.ElementsMatch(t, []uint64{77, 78}, notFound.Missing)
}

func TestCreateOrderConflictListsClaimedIDs(t *testing.T) {
	env := newTestEnv(
		seatUnit(10, 1, "A1", 3500),
		seatUnit(11, 1, "A2", 3500),
	)

	_, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10)})
	require.NoError(t, err)

	_, err = env.orderSvc.CreateOrder(context.Background(), 2, []LineRequest{Specific(10), Specific(11)})
	var conflict *repository.ClaimConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []uint64{10}, conflict.TicketIDs)
}

// A direct order ignores cart holds entirely; only committed orders
// count against it.
func TestCreateOrderBypassesHolds(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	require.NoError(t, env.cart.AddSeat(context.Background(), 2, 10))

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10)})
	require.NoError(t, err)
	assert.Equal(t, uint32(3500), order.TotalPriceCents)
}

func TestCreateOrderResolvesGALines(t *testing.T) {
	env := newTestEnv(
		gaUnit(1, 1, 2500),
		gaUnit(2, 1, 2500),
		gaUnit(3, 1, 2500),
		seatUnit(10, 1, "A1", 3500),
	)

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{
		GeneralAdmission(1, 2),
		Specific(10),
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 3)
	assert.Equal(t, uint32(2*2500+3500), order.TotalPriceCents)
	// Allocation is stable: lowest free GA IDs first.
	assert.Equal(t, uint64(1), order.Items[0].TicketID)
	assert.Equal(t, uint64(2), order.Items[1].TicketID)
}

func TestPayOnlyTransitionsPendingOrders(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10)})
	require.NoError(t, err)

	paid, err := env.orderSvc.Pay(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = env.orderSvc.Pay(context.Background(), order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotPending)
}

func TestCancelPaidOrderFails(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10)})
	require.NoError(t, err)
	_, err = env.orderSvc.Pay(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = env.orderSvc.Cancel(context.Background(), order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotPending)
}

func TestCancelReleasesClaims(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10)})
	require.NoError(t, err)

	canceled, err := env.orderSvc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCanceled, canceled.Status)
	assert.Nil(t, canceled.PaidAt)

	// The unit is reservable again.
	_, err = env.orderSvc.CreateOrder(context.Background(), 2, []LineRequest{Specific(10)})
	assert.NoError(t, err)
}

func TestPayUnknownOrder(t *testing.T) {
	env := newTestEnv()

	_, err := env.orderSvc.Pay(context.Background(), 404)
	assert.True(t, errors.Is(err, repository.ErrOrderNotFound))
}

func TestOrderLifecyclePublishesEvents(t *testing.T) {
	env := newTestEnv(seatUnit(10, 1, "A1", 3500))

	order, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10)})
	require.NoError(t, err)
	_, err = env.orderSvc.Pay(context.Background(), order.ID)
	require.NoError(t, err)

	orderMsgs := env.queued(queue.OrderEventsQueue)
	require.Len(t, orderMsgs, 2)
	created := orderMsgs[0].payload.(queue.OrderEvent)
	assert.Equal(t, queue.OrderCreated, created.Type)
	assert.Equal(t, []uint64{1}, created.EventIDs)
	paid := orderMsgs[1].payload.(queue.OrderEvent)
	assert.Equal(t, queue.OrderPaid, paid.Type)

	graphMsgs := env.queued(queue.GraphSyncQueue)
	require.Len(t, graphMsgs, 1)
	fact := graphMsgs[0].payload.(queue.PurchaseEvent)
	assert.Equal(t, uint64(1), fact.EventID)
	assert.Equal(t, "Midnight Run", fact.Title)
}
