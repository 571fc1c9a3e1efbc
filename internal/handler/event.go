package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mantasj/ticket-marketplace/internal/app"
	"github.com/mantasj/ticket-marketplace/internal/model"
	"github.com/mantasj/ticket-marketplace/internal/queue"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// EventHandler serves event and venue endpoints.  Event creation is the
// one place the handler drives a transaction directly: the event row and
// its full ticket inventory must commit or roll back together.
type EventHandler struct {
	Events  *repository.EventRepo
	Tickets *repository.TicketRepo
	Publish app.Publisher
}

// NewEventHandler constructs an EventHandler.  Publish may be nil.
func NewEventHandler(events *repository.EventRepo, tickets *repository.TicketRepo, publish app.Publisher) *EventHandler {
	if events == nil || tickets == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Tickets: tickets, Publish: publish}
}

type inventoryReq struct {
	GACount        *int     `json:"gaCount"`
	GAPriceCents   *uint32  `json:"gaPriceCents"`
	SeatRows       []string `json:"seatRows"`
	SeatsPerRow    *int     `json:"seatsPerRow"`
	SeatPriceCents *uint32  `json:"seatPriceCents"`
}

type createEventReq struct {
	VenueID     uint64        `json:"venueId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	EventDate   string        `json:"eventDate"` // RFC 3339 or YYYY-MM-DD
	Inventory   *inventoryReq `json:"inventory"`
}

type eventResp struct {
	ID          uint64    `json:"id"`
	OrganizerID uint64    `json:"organizer_id"`
	VenueID     uint64    `json:"venue_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	EventDate   time.Time `json:"event_date"`
	TicketCount int       `json:"ticket_count,omitempty"`
}

func toEventResp(ev *model.Event) eventResp {
	return eventResp{
		ID:          ev.ID,
		OrganizerID: ev.OrganizerID,
		VenueID:     ev.VenueID,
		Title:       ev.Title,
		Description: ev.Description,
		EventDate:   ev.EventDate,
	}
}

func parseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

// Create handles POST /v1/events (organizer only).  The event and its
// fixed inventory are created in one transaction; defaults are 100 GA
// units at 2500 and rows A and B of 50 seats at 3500, overridable via
// the inventory block.
func (h *EventHandler) Create(c echo.Context) error {
	organizerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.VenueID == 0 || req.EventDate == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venueId/title/eventDate required"})
	}
	date, err := parseEventDate(req.EventDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid eventDate"})
	}

	ctx := c.Request().Context()
	exists, err := h.Events.VenueExists(ctx, req.VenueID)
	if err != nil {
		return writeDomainError(c, err)
	}
	if !exists {
		return writeDomainError(c, repository.ErrVenueNotFound)
	}

	spec := repository.DefaultInventorySpec()
	if inv := req.Inventory; inv != nil {
		if inv.GACount != nil {
			spec.GACount = *inv.GACount
		}
		if inv.GAPriceCents != nil {
			spec.GAPriceCents = *inv.GAPriceCents
		}
		if len(inv.SeatRows) > 0 {
			spec.SeatRows = inv.SeatRows
		}
		if inv.SeatsPerRow != nil {
			spec.SeatsPerRow = *inv.SeatsPerRow
		}
		if inv.SeatPriceCents != nil {
			spec.SeatPriceCents = *inv.SeatPriceCents
		}
	}

	ev := &model.Event{
		OrganizerID: organizerID,
		VenueID:     req.VenueID,
		Title:       req.Title,
		EventDate:   date,
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		ev.Description = &d
	}

	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Events.CreateTx(ctx, tx, ev); err != nil {
		return writeDomainError(c, err)
	}
	units, err := h.Tickets.CreateInventoryTx(ctx, tx, ev.ID, spec)
	if err != nil {
		return writeDomainError(c, err)
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	committed = true

	resp := toEventResp(ev)
	resp.TicketCount = len(units)
	return c.JSON(http.StatusCreated, resp)
}

// List handles GET /v1/events with filters, sort and pagination.
func (h *EventHandler) List(c echo.Context) error {
	f := repository.EventFilter{
		Query: strings.TrimSpace(c.QueryParam("q")),
		Sort:  c.QueryParam("sort"),
		Desc:  c.QueryParam("order") == "desc",
	}
	f.OrganizerID, _ = strconv.ParseUint(c.QueryParam("organizerId"), 10, 64)
	f.VenueID, _ = strconv.ParseUint(c.QueryParam("venueId"), 10, 64)
	if v := c.QueryParam("from"); v != "" {
		if t, err := parseEventDate(v); err == nil {
			f.DateFrom = &t
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if t, err := parseEventDate(v); err == nil {
			f.DateTo = &t
		}
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	events, total, err := h.Events.List(c.Request().Context(), f)
	if err != nil {
		return writeDomainError(c, err)
	}
	items := make([]eventResp, 0, len(events))
	for i := range events {
		items = append(items, toEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

// Get handles GET /v1/events/:id and emits a best-effort page-view
// activity fact when the caller is authenticated.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}

	if h.Publish != nil {
		if userID, err := getUserID(c); err == nil {
			view := queue.ActivityEvent{
				ID:         uuid.NewString(),
				UserID:     userID,
				Action:     queue.ActionEventView,
				EventID:    ev.ID,
				OccurredAt: time.Now().UTC().Format(time.RFC3339),
			}
			_ = h.Publish(c.Request().Context(), queue.ActivityQueue, view)
		}
	}
	return c.JSON(http.StatusOK, toEventResp(ev))
}

// ListVenues handles GET /v1/venues.
func (h *EventHandler) ListVenues(c echo.Context) error {
	venues, err := h.Events.ListVenues(c.Request().Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": venues})
}
