package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/events"
)

func TestEnqueueWithProviderNoneIsNoop(t *testing.T) {
	h := newHarness(t)
	h.store.PutNotificationSettings(domain.HotelNotificationSettings{HotelID: hotelID, EmailProvider: domain.ProviderNone})

	entry, err := h.notifications.Enqueue(context.Background(), hotelID, "a@hotel.test", "subject", "body", nil)
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, h.store.OutboxEntries())
}

func TestEnqueueWithoutSettingsIsNoop(t *testing.T) {
	h := newHarness(t)

	entry, err := h.notifications.Enqueue(context.Background(), hotelID, "a@hotel.test", "subject", "body", nil)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestEnqueueCreatesPendingEntry(t *testing.T) {
	h := newHarness(t)
	h.emailEnabled()

	entry, err := h.notifications.Enqueue(context.Background(), hotelID, "a@hotel.test", "Hello", "body",
		json.RawMessage(`{"k":"v"}`))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, domain.ChannelEmail, entry.Channel)
	assert.Equal(t, "smtp", entry.Provider)
	assert.Equal(t, domain.OutboxStatusPending, entry.Status)
	assert.Equal(t, 0, entry.Attempts)
	assert.False(t, entry.NextAttemptAt.IsZero())
	assert.Equal(t, "Hello", *entry.Subject)
}

func TestEnqueueSurfacesOutboxFailure(t *testing.T) {
	h := newHarness(t, withOutbox(failingOutbox{}))
	h.emailEnabled()

	_, err := h.notifications.Enqueue(context.Background(), hotelID, "a@hotel.test", "s", "b", nil)
	assert.Error(t, err)
}

func TestRecipientsRosterExcludesActor(t *testing.T) {
	h := newHarness(t)
	h.staff("alice", 0, domain.StaffRoleStaff, "spa")
	h.staff("bob", 1, domain.StaffRoleStaff, "spa")
	h.staff("carol", 2, domain.StaffRoleStaff, "reception")
	ticket := &domain.Ticket{ID: "t-1", HotelID: hotelID, Department: "spa", Status: domain.TicketStatusPending}

	change := ticketChange(events.EventTicketCreated, staffPrincipal("alice", domain.StaffRoleStaff, "spa"), nil, ticket)
	recipients, err := h.notifications.Recipients(context.Background(), change)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "bob", recipients[0].ID)
}

func TestRecipientsPreferAssignee(t *testing.T) {
	h := newHarness(t)
	h.staff("alice", 0, domain.StaffRoleStaff, "spa")
	h.staff("bob", 1, domain.StaffRoleStaff, "spa")
	ticket := &domain.Ticket{ID: "t-1", HotelID: hotelID, Department: "spa", Status: domain.TicketStatusPending, AssignedStaffUserID: str("bob")}

	change := ticketChange(events.EventTicketCreated, guest(), nil, ticket)
	recipients, err := h.notifications.Recipients(context.Background(), change)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "bob", recipients[0].ID)

	selfAssigned := ticketChange(events.EventTicketUpdated, staffPrincipal("bob", domain.StaffRoleStaff, "spa"), nil, ticket)
	recipients, err = h.notifications.Recipients(context.Background(), selfAssigned)
	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestNotifyChangeWritesOneEntryPerRecipient(t *testing.T) {
	h := newHarness(t)
	h.emailEnabled()
	h.staff("alice", 0, domain.StaffRoleStaff, "spa")
	h.staff("bob", 1, domain.StaffRoleStaff, "spa")
	ticket := &domain.Ticket{ID: "t-1", HotelID: hotelID, Department: "spa", Title: "Massage", Status: domain.TicketStatusPending}

	h.notifications.NotifyChange(context.Background(), ticketChange(events.EventTicketCreated, guest(), nil, ticket))

	entries := h.store.OutboxEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Ticket: Massage", *entries[0].Subject)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	assert.Equal(t, "t-1", payload["id"])
}
