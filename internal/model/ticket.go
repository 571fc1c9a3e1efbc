package model

import "time"

// TicketKind discriminates general-admission units from seat units.
// It is stored in the tickets.kind column.
type TicketKind string

const (
    // KindGeneralAdmission marks a fungible unit with no seat assignment.
    KindGeneralAdmission TicketKind = "GA"
    // KindSeat marks a unit tied to one physical seat.
    KindSeat TicketKind = "seat"
)

// TicketUnit is one sellable unit of inventory for an event, either a
// general-admission slot or a specific seat.  Units are generated in bulk
// when the event is created and are never deleted; orders and holds only
// reference them by ID.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – event this unit belongs to.
//  Kind       – GA or seat.
//  Seat       – seat label such as "A12"; nil for GA units.  Unique per
//               event among seat units.
//  PriceCents – price in minor currency units; never negative.
//  CreatedAt  – timestamp of creation.
type TicketUnit struct {
    ID         uint64     // tickets.id
    EventID    uint64     // tickets.event_id
    Kind       TicketKind // tickets.kind
    Seat       *string    // tickets.seat (nullable)
    PriceCents uint32     // tickets.price_cents
    CreatedAt  time.Time  // tickets.created_at
}

// IsGeneralAdmission reports whether the unit counts as general admission.
// The kind column is authoritative; a seat label of exactly "GA" is accepted
// as a compatibility fallback for rows imported from older data sets.
func (t TicketUnit) IsGeneralAdmission() bool {
    if t.Kind == KindGeneralAdmission {
        return true
    }
    return t.Seat != nil && equalFoldGA(*t.Seat)
}

func equalFoldGA(s string) bool {
    return len(s) == 2 && (s[0] == 'G' || s[0] == 'g') && (s[1] == 'A' || s[1] == 'a')
}
