package domain

import (
	"encoding/json"
	"time"
)

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderGuest SenderType = "guest"
	SenderStaff SenderType = "staff"
)

// Message is an append-only entry in a thread. Ordering is CreatedAt then Seq.
type Message struct {
	ID         string
	ThreadID   string
	SenderType SenderType
	SenderName string
	BodyText   string
	Payload    json.RawMessage
	Seq        int64
	CreatedAt  time.Time
}

// Note is an internal staff annotation on a ticket or a thread; guests never see notes.
type Note struct {
	ID                string
	HotelID           string
	TicketID          *string
	ThreadID          *string
	AuthorStaffUserID string
	AuthorName        string
	BodyText          string
	CreatedAt         time.Time
}
