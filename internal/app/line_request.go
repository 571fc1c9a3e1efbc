package app

// LineRequest is one requested order line: either one specific ticket
// unit, or a quantity of general-admission units for an event that the
// allocator resolves to concrete IDs before anything touches storage.
type LineRequest struct {
	ticketID uint64
	eventID  uint64
	quantity int
	ga       bool
}

// Specific requests one concrete ticket unit.
func Specific(ticketID uint64) LineRequest {
	return LineRequest{ticketID: ticketID}
}

// GeneralAdmission requests quantity fungible units from the event's
// general-admission pool.
func GeneralAdmission(eventID uint64, quantity int) LineRequest {
	return LineRequest{eventID: eventID, quantity: quantity, ga: true}
}

// IsGeneralAdmission reports whether the line is a quantity request.
func (l LineRequest) IsGeneralAdmission() bool { return l.ga }
