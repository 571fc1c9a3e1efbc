package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mantasj/ticket-marketplace/internal/app"
	"github.com/mantasj/ticket-marketplace/internal/model"
)

// CartHandler serves the cart endpoints.  All routes require a token;
// the cart is keyed by the authenticated user.
type CartHandler struct {
	Cart *app.CartService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(cart *app.CartService) *CartHandler {
	if cart == nil {
		panic("nil cart service passed to NewCartHandler")
	}
	return &CartHandler{Cart: cart}
}

type cartItemResp struct {
	TicketID   uint64  `json:"ticket_id"`
	EventID    uint64  `json:"event_id"`
	Kind       string  `json:"kind"`
	Seat       *string `json:"seat,omitempty"`
	PriceCents uint32  `json:"price_cents"`
}

func toCartItems(units []model.TicketUnit) []cartItemResp {
	items := make([]cartItemResp, 0, len(units))
	for _, u := range units {
		items = append(items, cartItemResp{
			TicketID:   u.ID,
			EventID:    u.EventID,
			Kind:       string(u.Kind),
			Seat:       u.Seat,
			PriceCents: u.PriceCents,
		})
	}
	return items
}

// Get handles GET /v1/cart.
func (h *CartHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	view, err := h.Cart.Get(c.Request().Context(), userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":             toCartItems(view.Items),
		"total_price_cents": view.TotalPriceCents,
	})
}

// addItemReq mirrors the order item shape: a concrete ticketId holds one
// seat, ticketId "GA" plus eventId and quantity holds a GA batch.
type addItemReq struct {
	TicketID json.RawMessage `json:"ticketId"`
	EventID  uint64          `json:"eventId"`
	Quantity int             `json:"quantity"`
}

// AddItem handles POST /v1/cart/items.
func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req addItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	raw := strings.TrimSpace(string(req.TicketID))
	if raw == "" || raw == "null" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticketId required"})
	}
	ctx := c.Request().Context()

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(req.TicketID, &s); err != nil || !strings.EqualFold(strings.TrimSpace(s), "GA") {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticketId"})
		}
		if req.EventID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId required for GA items"})
		}
		qty := req.Quantity
		if qty == 0 {
			qty = 1
		}
		held, err := h.Cart.AddGA(ctx, userID, req.EventID, qty)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(http.StatusCreated, echo.Map{"held": held})
	}

	var ticketID uint64
	if err := json.Unmarshal(req.TicketID, &ticketID); err != nil || ticketID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticketId"})
	}
	if err := h.Cart.AddSeat(ctx, userID, ticketID); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"held": []uint64{ticketID}})
}

// RemoveItem handles DELETE /v1/cart/items/:id.  Removing an absent
// unit is not an error; the response reports whether anything changed.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	removed, err := h.Cart.Remove(c.Request().Context(), userID, ticketID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}

// Clear handles POST /v1/cart/clear.
func (h *CartHandler) Clear(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Cart.Clear(c.Request().Context(), userID); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout handles POST /v1/cart/checkout.  The resulting order is paid
// immediately.
func (h *CartHandler) Checkout(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	order, err := h.Cart.Checkout(c.Request().Context(), userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResp(order))
}
