// Package queue defines message payloads exchanged over the message broker
// and the background consumers that process them.  Everything flowing
// through here is best-effort: the primary request path only enqueues and
// never waits for, or fails on, a consumer.
package queue

// Queue names.  All queues are durable and use the default exchange.
const (
	// OrderEventsQueue carries order lifecycle notifications; its consumer
	// drops stale analytics aggregates.
	OrderEventsQueue = "order.events"
	// ActivityQueue carries cart and page-view activity facts.
	ActivityQueue = "activity.events"
	// GraphSyncQueue carries "user bought event" facts for the
	// recommendation graph.
	GraphSyncQueue = "graph.sync"
)

// Order event types.
const (
	OrderCreated  = "created"
	OrderPaid     = "paid"
	OrderCanceled = "canceled"
)

// OrderEvent is published whenever an order changes state.  Downstream
// consumers use it to invalidate cached aggregates without querying the
// primary database.
type OrderEvent struct {
	Type            string   `json:"type"` // one of the order event types above
	OrderID         uint64   `json:"order_id"`
	UserID          uint64   `json:"user_id"`
	EventIDs        []uint64 `json:"event_ids"`
	TotalPriceCents uint32   `json:"total_price_cents"`
	OccurredAt      string   `json:"occurred_at"`
}

// ActivityEvent records a single user interaction: a ticket entering or
// leaving a cart, or an event page view.  ID is a fresh UUID so replayed
// deliveries can be de-duplicated by consumers that care.
type ActivityEvent struct {
	ID         string `json:"id"`
	UserID     uint64 `json:"user_id"`
	Action     string `json:"action"` // "cart_add", "cart_remove", "event_view"
	TicketID   uint64 `json:"ticket_id,omitempty"`
	EventID    uint64 `json:"event_id,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Seat       string `json:"seat,omitempty"`
	PriceCents uint32 `json:"price_cents,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Activity actions.
const (
	ActionCartAdd    = "cart_add"
	ActionCartRemove = "cart_remove"
	ActionEventView  = "event_view"
)

// PurchaseEvent is a "user bought event" fact for the recommendation
// graph collaborator.
type PurchaseEvent struct {
	ID         string `json:"id"`
	UserID     uint64 `json:"user_id"`
	EventID    uint64 `json:"event_id"`
	Title      string `json:"title,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
