package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mantasj/ticket-marketplace/internal/app"
	"github.com/mantasj/ticket-marketplace/internal/model"
	"github.com/mantasj/ticket-marketplace/internal/repository"
)

// TicketHandler serves the availability listing.
type TicketHandler struct {
	Availability *app.AvailabilityService
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(availability *app.AvailabilityService) *TicketHandler {
	if availability == nil {
		panic("nil availability service passed to NewTicketHandler")
	}
	return &TicketHandler{Availability: availability}
}

// List handles GET /v1/tickets?eventId=&type=&minPrice=&maxPrice=&seat=.
// It returns the units of the event that can currently be reserved, with
// general admission collapsed into a single counted row.
func (h *TicketHandler) List(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.QueryParam("eventId"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId required"})
	}

	f := repository.TicketFilter{
		SeatPrefix: strings.TrimSpace(c.QueryParam("seat")),
	}
	switch strings.ToUpper(strings.TrimSpace(c.QueryParam("type"))) {
	case "":
	case "GA":
		f.Kind = model.KindGeneralAdmission
	case "SEAT":
		f.Kind = model.KindSeat
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be GA or seat"})
	}
	if v := c.QueryParam("minPrice"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid minPrice"})
		}
		p := uint32(n)
		f.MinPriceCents = &p
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid maxPrice"})
		}
		p := uint32(n)
		f.MaxPriceCents = &p
	}

	rows, err := h.Availability.ListAvailable(c.Request().Context(), eventID, f)
	if err != nil {
		return writeDomainError(c, err)
	}
	if rows == nil {
		rows = []app.AvailabilityRow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}
