package handlers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-services/internal/events"
)

func TestWriteSSEFramesOneEvent(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSSE(&buf, events.Event{Type: events.EventTicketCreated, HotelID: "hotel-1", TicketID: "t-1", Version: 1})
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "event: ticket_created\ndata: "))
	require.True(t, strings.HasSuffix(out, "\n\n"))

	payload := strings.TrimSuffix(strings.TrimPrefix(out, "event: ticket_created\ndata: "), "\n\n")
	assert.NotContains(t, payload, "\n")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "t-1", decoded["ticketId"])
	assert.Nil(t, decoded["assignedStaffUserId"])
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList("  "))
	assert.Equal(t, []string{"housekeeping", "spa"}, splitList("housekeeping, ,spa"))
}
