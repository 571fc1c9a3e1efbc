package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(ticketID string, qty int) orderItemReq {
	return orderItemReq{TicketID: json.RawMessage(ticketID), Quantity: qty}
}

func TestToLinesClassifiesItems(t *testing.T) {
	lines, err := toLines([]orderItemReq{
		item("42", 0),
		item(`"GA"`, 3),
		item(`"7"`, 0), // quoted numeric IDs are tolerated
	}, 5)
	require.NoError(t, err)

	require.Len(t, lines, 3)
	assert.False(t, lines[0].IsGeneralAdmission())
	assert.True(t, lines[1].IsGeneralAdmission())
	assert.False(t, lines[2].IsGeneralAdmission())
}

func TestToLinesGADefaultsQuantityToOne(t *testing.T) {
	lines, err := toLines([]orderItemReq{item(`"ga"`, 0)}, 5)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].IsGeneralAdmission())
}

func TestToLinesGARequiresEventID(t *testing.T) {
	_, err := toLines([]orderItemReq{item(`"GA"`, 1)}, 0)
	assert.Error(t, err)
}

func TestToLinesRejectsGarbage(t *testing.T) {
	for _, raw := range []string{`"seat-A1"`, `0`, `null`, `true`, ``} {
		_, err := toLines([]orderItemReq{item(raw, 0)}, 5)
		assert.Error(t, err, "ticketId %q should be rejected", raw)
	}
}
