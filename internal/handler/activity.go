package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mantasj/ticket-marketplace/internal/queue"
)

// ActivityHandler serves the per-user activity feeds.  Feeds are filled
// by the activity consumer, so freshly published facts may lag by a
// delivery round-trip; an empty feed is a normal response, not an error.
type ActivityHandler struct {
	Rdb *redis.Client
}

// NewActivityHandler constructs an ActivityHandler.  Rdb may be nil, in
// which case both feeds read as empty.
func NewActivityHandler(rdb *redis.Client) *ActivityHandler {
	return &ActivityHandler{Rdb: rdb}
}

// CartFeed handles GET /v1/activity/cart.
func (h *ActivityHandler) CartFeed(c echo.Context) error {
	return h.feed(c, queue.ActionCartAdd)
}

// ViewsFeed handles GET /v1/activity/views.
func (h *ActivityHandler) ViewsFeed(c echo.Context) error {
	return h.feed(c, queue.ActionEventView)
}

func (h *ActivityHandler) feed(c echo.Context, action string) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items := []queue.ActivityEvent{}
	if h.Rdb != nil {
		raw, err := h.Rdb.LRange(c.Request().Context(), queue.FeedKey(userID, action), 0, -1).Result()
		if err != nil && err != redis.Nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		for _, entry := range raw {
			var ev queue.ActivityEvent
			if json.Unmarshal([]byte(entry), &ev) == nil {
				items = append(items, ev)
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
