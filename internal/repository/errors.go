// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrVenueNotFound indicates a dangling venue reference while
// ClaimConflictError signals that a reservation lost the race for one or
// more ticket units at the storage layer.
package repository

import (
    "errors"
    "fmt"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEventNotFound is returned when an event lookup yields no rows.
var ErrEventNotFound = errors.New("event not found")

// ErrVenueNotFound is returned when a venue lookup yields no rows.
var ErrVenueNotFound = errors.New("venue not found")

// ErrOrderNotFound is returned when an order lookup yields no rows.
var ErrOrderNotFound = errors.New("order not found")

// ErrUserNotFound is returned when a user lookup yields no rows.
var ErrUserNotFound = errors.New("user not found")

// ClaimConflictError reports which ticket units could not be claimed
// because another active reservation already references them.  It is
// produced when the unique index on ticket_claims rejects an insert, and
// by the hold store when a per-ticket claim key is owned by another user.
// Handlers translate it into an HTTP 409 response listing TicketIDs so
// clients can retry with an adjusted set.
type ClaimConflictError struct {
    TicketIDs []uint64
}

func (e *ClaimConflictError) Error() string {
    return fmt.Sprintf("tickets already reserved: %v", e.TicketIDs)
}

// TicketsNotFoundError reports ticket unit IDs that do not exist.  It is
// returned when a reservation request references unknown inventory.
type TicketsNotFoundError struct {
    Missing []uint64
}

func (e *TicketsNotFoundError) Error() string {
    return fmt.Sprintf("tickets not found: %v", e.Missing)
}
