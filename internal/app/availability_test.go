package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantasj/ticket-marketplace/internal/repository"
)

func TestListAvailableGroupsGA(t *testing.T) {
	env := newTestEnv(
		gaUnit(1, 1, 2500),
		gaUnit(2, 1, 2500),
		gaUnit(3, 1, 2500),
		seatUnit(10, 1, "A2", 3500),
		seatUnit(11, 1, "A1", 3500),
	)

	rows, err := env.avail.ListAvailable(context.Background(), 1, repository.TicketFilter{})
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "GA", rows[0].ID)
	assert.Equal(t, 3, rows[0].Available)
	assert.Equal(t, uint32(2500), rows[0].PriceCents)
	// Seats follow, sorted by label.
	assert.Equal(t, "A1", rows[1].Seat)
	assert.Equal(t, "A2", rows[2].Seat)
	assert.Equal(t, 1, rows[1].Available)
}

func TestListAvailableOmitsEmptyGARow(t *testing.T) {
	env := newTestEnv(
		gaUnit(1, 1, 2500),
		seatUnit(10, 1, "A1", 3500),
	)

	_, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(1)})
	require.NoError(t, err)

	rows, err := env.avail.ListAvailable(context.Background(), 1, repository.TicketFilter{})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0].Seat)
}

func TestListAvailableExcludesOrdersAndHolds(t *testing.T) {
	env := newTestEnv(
		seatUnit(10, 1, "A1", 3500),
		seatUnit(11, 1, "A2", 3500),
		seatUnit(12, 1, "A3", 3500),
	)

	_, err := env.orderSvc.CreateOrder(context.Background(), 1, []LineRequest{Specific(10)})
	require.NoError(t, err)
	require.NoError(t, env.cart.AddSeat(context.Background(), 2, 11))

	rows, err := env.avail.ListAvailable(context.Background(), 1, repository.TicketFilter{})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "A3", rows[0].Seat)
}

// Canceled orders release their units; expired or removed holds do the
// same.  Only active reservations count.
func TestExclusionsTrackActiveReservationsOnly(t *testing.T) {
	env := newTestEnv(
		seatUnit(10, 1, "A1", 3500),
		seatUnit(11, 1, "A2", 3500),
	)
	ctx := context.Background()

	order, err := env.orderSvc.CreateOrder(ctx, 1, []LineRequest{Specific(10)})
	require.NoError(t, err)
	require.NoError(t, env.cart.AddSeat(ctx, 2, 11))

	excluded, err := env.avail.Exclusions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, excluded, 2)

	_, err = env.orderSvc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	removed, err := env.cart.Remove(ctx, 2, 11)
	require.NoError(t, err)
	assert.True(t, removed)

	excluded, err = env.avail.Exclusions(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, excluded)
}

func TestAllocatePicksLowestFreeIDs(t *testing.T) {
	env := newTestEnv(
		gaUnit(1, 1, 2500),
		gaUnit(2, 1, 2500),
		gaUnit(3, 1, 2500),
		gaUnit(4, 1, 2500),
	)
	ctx := context.Background()

	_, err := env.orderSvc.CreateOrder(ctx, 1, []LineRequest{Specific(2)})
	require.NoError(t, err)

	ids, err := env.alloc.Allocate(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ids)
}

func TestAllocateInsufficientAvailability(t *testing.T) {
	env := newTestEnv(
		gaUnit(1, 1, 2500),
		gaUnit(2, 1, 2500),
	)
	ctx := context.Background()

	require.NoError(t, env.cart.AddSeat(ctx, 2, 1))

	_, err := env.alloc.Allocate(ctx, 1, 2)
	var insufficient *InsufficientError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Requested)
	assert.Equal(t, 1, insufficient.Available)
}

func TestAllocateRejectsZeroQuantity(t *testing.T) {
	env := newTestEnv(gaUnit(1, 1, 2500))

	_, err := env.alloc.Allocate(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
