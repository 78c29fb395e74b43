package domain

import (
	"encoding/json"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending             TicketStatus = "pending"
	TicketStatusPendingConfirmation TicketStatus = "pending_confirmation"
	TicketStatusInProgress          TicketStatus = "in_progress"
	TicketStatusResolved            TicketStatus = "resolved"
)

// Valid reports whether the status belongs to the ticket status set.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusPendingConfirmation, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// Ticket is a guest service request routed to one department.
type Ticket struct {
	ID                  string
	HotelID             string
	StayID              *string
	RoomNumber          string
	Department          string
	Status              TicketStatus
	Title               string
	AssignedStaffUserID *string
	ServiceItemID       *string
	Payload             json.RawMessage
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PayloadType extracts the "type" tag from the opaque payload, if any.
func (t Ticket) PayloadType() string {
	return payloadType(t.Payload)
}

// Clone returns a deep copy safe to mutate.
func (t Ticket) Clone() Ticket {
	out := t
	out.StayID = cloneString(t.StayID)
	out.AssignedStaffUserID = cloneString(t.AssignedStaffUserID)
	out.ServiceItemID = cloneString(t.ServiceItemID)
	if t.Payload != nil {
		out.Payload = append(json.RawMessage(nil), t.Payload...)
	}
	return out
}

func payloadType(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var tagged struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &tagged); err != nil {
		return ""
	}
	return tagged.Type
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// SameString compares two optional strings by value.
func SameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
