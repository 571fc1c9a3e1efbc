package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mantasj/ticket-marketplace/internal/app"
	"github.com/mantasj/ticket-marketplace/internal/cache"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// AnalyticsHandler serves the aggregate endpoints.  Results are cached
// in Redis; the order-events consumer drops the cache when any order
// changes, so a cold read after a sale recomputes fresh numbers.
type AnalyticsHandler struct {
	Orders       *repository.OrderRepo
	Events       *repository.EventRepo
	Availability *app.AvailabilityService
	Cache        *cache.Cache
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(orders *repository.OrderRepo, events *repository.EventRepo, availability *app.AvailabilityService, c *cache.Cache) *AnalyticsHandler {
	if orders == nil || events == nil || availability == nil || c == nil {
		panic("nil dependency passed to NewAnalyticsHandler")
	}
	return &AnalyticsHandler{Orders: orders, Events: events, Availability: availability, Cache: c}
}

// TopEvents handles GET /v1/analytics/top-events: events ranked by paid
// revenue.
func (h *AnalyticsHandler) TopEvents(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	ctx := c.Request().Context()
	cacheKey := "top-events:" + strconv.Itoa(limit)

	var rows []repository.EventSales
	if !h.Cache.Get(ctx, cacheKey, &rows) {
		var err error
		rows, err = h.Orders.PaidItemsByEvent(ctx, limit)
		if err != nil {
			return writeDomainError(c, err)
		}
		h.Cache.Set(ctx, cacheKey, rows)
	}
	if rows == nil {
		rows = []repository.EventSales{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}

// eventAvailability is one row of the availability aggregate.
type eventAvailability struct {
	EventID   uint64    `json:"event_id"`
	Title     string    `json:"title"`
	EventDate time.Time `json:"event_date"`
	GA        int       `json:"ga_available"`
	Seats     int       `json:"seats_available"`
}

// EventsAvailability handles GET /v1/analytics/availability: remaining
// inventory per event.
func (h *AnalyticsHandler) EventsAvailability(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	ctx := c.Request().Context()
	cacheKey := "availability:" + strconv.Itoa(limit)

	var rows []eventAvailability
	if h.Cache.Get(ctx, cacheKey, &rows) {
		return c.JSON(http.StatusOK, echo.Map{"items": rows})
	}

	events, _, err := h.Events.List(ctx, repository.EventFilter{Limit: limit})
	if err != nil {
		return writeDomainError(c, err)
	}
	rows = []eventAvailability{}
	for i := range events {
		available, err := h.Availability.ListAvailable(ctx, events[i].ID, repository.TicketFilter{})
		if err != nil {
			return writeDomainError(c, err)
		}
		row := eventAvailability{
			EventID:   events[i].ID,
			Title:     events[i].Title,
			EventDate: events[i].EventDate,
		}
		for _, a := range available {
			if a.ID == "GA" {
				row.GA += a.Available
			} else {
				row.Seats += a.Available
			}
		}
		rows = append(rows, row)
	}
	h.Cache.Set(ctx, cacheKey, rows)
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}
