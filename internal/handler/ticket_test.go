package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantasj/ticket-marketplace/internal/app"
	"github.com/mantasj/ticket-marketplace/internal/model"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// Minimal store stubs so the availability service can be exercised
// through the HTTP layer without MySQL or Redis.

type stubTickets struct{ units []model.TicketUnit }

func (s *stubTickets) FindByIDs(_ context.Context, _ []uint64) ([]model.TicketUnit, error) {
	return s.units, nil
}

func (s *stubTickets) ListByEvent(_ context.Context, eventID uint64, f repository.TicketFilter) ([]model.TicketUnit, error) {
	var out []model.TicketUnit
	for _, u := range s.units {
		if u.EventID != eventID {
			continue
		}
		if f.Kind == model.KindGeneralAdmission && !u.IsGeneralAdmission() {
			continue
		}
		if f.Kind == model.KindSeat && u.IsGeneralAdmission() {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type stubOrders struct{}

func (stubOrders) Create(_ context.Context, _ uint64, _ []model.TicketUnit) (*model.Order, error) {
	return nil, nil
}
func (stubOrders) GetByID(_ context.Context, _ uint64) (*model.Order, error) { return nil, nil }
func (stubOrders) Pay(_ context.Context, _ uint64, _ time.Time) (*model.Order, error) {
	return nil, nil
}
func (stubOrders) Cancel(_ context.Context, _ uint64) (*model.Order, error)          { return nil, nil }
func (stubOrders) ReservedTicketIDs(_ context.Context, _ uint64) ([]uint64, error)   { return nil, nil }
func (stubOrders) ClaimedTicketIDs(_ context.Context, _ []uint64) ([]uint64, error)  { return nil, nil }

type stubHolds struct{}

func (stubHolds) Add(_ context.Context, _ uint64, _ []uint64, _ time.Duration) error { return nil }
func (stubHolds) Remove(_ context.Context, _, _ uint64, _ time.Duration) (bool, error) {
	return false, nil
}
func (stubHolds) Clear(_ context.Context, _ uint64) error              { return nil }
func (stubHolds) Members(_ context.Context, _ uint64) ([]uint64, error) { return nil, nil }
func (stubHolds) AllHeldTicketIDs(_ context.Context) (map[uint64]struct{}, error) {
	return map[uint64]struct{}{}, nil
}

func newTicketTestServer() (*echo.Echo, *TicketHandler) {
	seat := "A1"
	tickets := &stubTickets{units: []model.TicketUnit{
		{ID: 1, EventID: 1, Kind: model.KindGeneralAdmission, PriceCents: 2500},
		{ID: 2, EventID: 1, Kind: model.KindSeat, Seat: &seat, PriceCents: 3500},
	}}
	availability := app.NewAvailabilityService(tickets, stubOrders{}, stubHolds{})
	return echo.New(), NewTicketHandler(availability)
}

func listTickets(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()
	e, h := newTicketTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/tickets?"+query, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.List(e.NewContext(req, rec)))
	return rec
}

func decodeItems(t *testing.T, rec *httptest.ResponseRecorder) []app.AvailabilityRow {
	t.Helper()
	var body struct {
		Items []app.AvailabilityRow `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Items
}

func TestListTicketsRejectsUnknownType(t *testing.T) {
	rec := listTickets(t, "eventId=1&type=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "type must be GA or seat")
}

func TestListTicketsTypeIsCaseInsensitive(t *testing.T) {
	rec := listTickets(t, "eventId=1&type=ga")
	require.Equal(t, http.StatusOK, rec.Code)

	items := decodeItems(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "GA", items[0].ID)
}

func TestListTicketsSeatTypeFilter(t *testing.T) {
	rec := listTickets(t, "eventId=1&type=seat")
	require.Equal(t, http.StatusOK, rec.Code)

	items := decodeItems(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "A1", items[0].Seat)
}

func TestListTicketsNoTypeReturnsBothKinds(t *testing.T) {
	rec := listTickets(t, "eventId=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeItems(t, rec), 2)
}
