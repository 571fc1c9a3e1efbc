package model

import "time"

// OrderStatus enumerates the order state machine.  Transitions are
// one-directional: pending may become paid or canceled, both of which are
// terminal.
type OrderStatus string

const (
    OrderPending  OrderStatus = "pending"
    OrderPaid     OrderStatus = "paid"
    OrderCanceled OrderStatus = "canceled"
)

// Order records a user's purchase of one or more ticket units.  The total
// is always recomputed server-side from the stored unit prices and must
// equal the sum of the line prices.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who placed the order.
//  Status          – pending, paid or canceled.
//  TotalPriceCents – sum of item prices in minor units.
//  PaidAt          – when payment was recorded (nil while pending/canceled).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
//  Items           – line items, one per ticket unit.
type Order struct {
    ID              uint64      // orders.id
    UserID          uint64      // orders.user_id
    Status          OrderStatus // orders.status
    TotalPriceCents uint32      // orders.total_price_cents
    PaidAt          *time.Time  // orders.paid_at (nullable)
    CreatedAt       time.Time   // orders.created_at
    UpdatedAt       time.Time   // orders.updated_at
    Items           []OrderItem // rows from order_items
}

// OrderItem is one line of an order.  Kind and Seat are denormalised
// snapshots taken at order time so the line survives later inventory
// edits, and PriceCents is the unit price that was charged.
//
// Fields:
//  ID         – primary key identifier.
//  OrderID    – owning order.
//  TicketID   – reserved ticket unit.
//  PriceCents – price snapshot in minor units.
//  Kind       – ticket kind snapshot.
//  Seat       – seat label snapshot (nil for GA).
type OrderItem struct {
    ID         uint64     // order_items.id
    OrderID    uint64     // order_items.order_id
    TicketID   uint64     // order_items.ticket_id
    PriceCents uint32     // order_items.price_cents
    Kind       TicketKind // order_items.kind
    Seat       *string    // order_items.seat (nullable)
}
