package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mantasj/ticket-marketplace/internal/app"
	"github.com/mantasj/ticket-marketplace/internal/model"
)

// OrderHandler serves the direct order endpoints.
type OrderHandler struct {
	Orders *app.OrderService
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *app.OrderService) *OrderHandler {
	if orders == nil {
		panic("nil order service passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders}
}

// orderItemReq accepts either {"ticketId": 42} for a specific unit or
// {"ticketId": "GA", "quantity": 2} for a general-admission batch, so
// ticketId is kept raw until the line is classified.
type orderItemReq struct {
	TicketID json.RawMessage `json:"ticketId"`
	Quantity int             `json:"quantity"`
}

type createOrderReq struct {
	UserID  uint64         `json:"userId"`
	EventID uint64         `json:"eventId"`
	Items   []orderItemReq `json:"items"`
}

type orderItemResp struct {
	TicketID   uint64  `json:"ticket_id"`
	PriceCents uint32  `json:"price_cents"`
	Kind       string  `json:"kind"`
	Seat       *string `json:"seat,omitempty"`
}

type orderResp struct {
	ID              uint64          `json:"id"`
	UserID          uint64          `json:"user_id"`
	Status          string          `json:"status"`
	TotalPriceCents uint32          `json:"total_price_cents"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []orderItemResp `json:"items"`
}

func toOrderResp(o *model.Order) orderResp {
	resp := orderResp{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		TotalPriceCents: o.TotalPriceCents,
		PaidAt:          o.PaidAt,
		CreatedAt:       o.CreatedAt,
		Items:           []orderItemResp{},
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResp{
			TicketID:   it.TicketID,
			PriceCents: it.PriceCents,
			Kind:       string(it.Kind),
			Seat:       it.Seat,
		})
	}
	return resp
}

// toLines classifies raw order items into line requests.
func toLines(items []orderItemReq, eventID uint64) ([]app.LineRequest, error) {
	var lines []app.LineRequest
	for _, it := range items {
		raw := strings.TrimSpace(string(it.TicketID))
		if raw == "" || raw == "null" {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "ticketId required on every item")
		}
		if raw[0] == '"' {
			var s string
			if err := json.Unmarshal(it.TicketID, &s); err != nil {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid ticketId")
			}
			if !strings.EqualFold(strings.TrimSpace(s), "GA") {
				// Numeric IDs quoted as strings are accepted as well.
				id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
				if err != nil {
					return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid ticketId")
				}
				lines = append(lines, app.Specific(id))
				continue
			}
			if eventID == 0 {
				return nil, echo.NewHTTPError(http.StatusBadRequest, "eventId required for GA items")
			}
			qty := it.Quantity
			if qty == 0 {
				qty = 1
			}
			lines = append(lines, app.GeneralAdmission(eventID, qty))
			continue
		}
		var id uint64
		if err := json.Unmarshal(it.TicketID, &id); err != nil || id == 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid ticketId")
		}
		lines = append(lines, app.Specific(id))
	}
	return lines, nil
}

// Create handles POST /v1/orders.  The authenticated user owns the
// order; the userId field in the body is accepted only when it matches.
func (h *OrderHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID != 0 && req.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot order for another user"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items required"})
	}
	lines, err := toLines(req.Items, req.EventID)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return c.JSON(he.Code, echo.Map{"error": he.Message})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid items"})
	}

	order, err := h.Orders.CreateOrder(c.Request().Context(), userID, lines)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResp(order))
}

// Get handles GET /v1/orders/:id.
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.Orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResp(order))
}

// Pay handles PATCH /v1/orders/:id/pay.
func (h *OrderHandler) Pay(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.Orders.Pay(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResp(order))
}

// Cancel handles PATCH /v1/orders/:id/cancel.
func (h *OrderHandler) Cancel(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.Orders.Cancel(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResp(order))
}
