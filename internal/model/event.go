package model

import "time"

// Event represents a happening at a venue for which ticket inventory is
// sold.  The fixed inventory is generated atomically together with the
// event row; an event creation that requests tickets never commits with a
// partial inventory.
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who created the event.
//  VenueID     – venue where the event takes place.
//  Title       – display title.
//  Description – optional description text.
//  EventDate   – when the event happens.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
    ID          uint64    // events.id
    OrganizerID uint64    // events.organizer_id
    VenueID     uint64    // events.venue_id
    Title       string    // events.title
    Description *string   // events.description (nullable)
    EventDate   time.Time // events.event_date
    CreatedAt   time.Time // events.created_at
    UpdatedAt   time.Time // events.updated_at
}

// Venue is a place events are held at.  Venues are reference data seeded
// out of band; the core only validates that an event's venue exists.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – venue name.
//  Address   – optional street address.
//  Capacity  – optional advertised capacity; informational only, the real
//              limit is the generated ticket inventory.
//  CreatedAt – creation timestamp.
type Venue struct {
    ID        uint64    // venues.id
    Name      string    // venues.name
    Address   *string   // venues.address (nullable)
    Capacity  *uint32   // venues.capacity (nullable)
    CreatedAt time.Time // venues.created_at
}
