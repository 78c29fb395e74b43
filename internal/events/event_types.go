package events

import (
	"time"

	"github.com/spec-kit/guest-services/internal/domain"
)

// EventType enumerates realtime event discriminators.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketUpdated     EventType = "ticket_updated"
	EventTicketNoteCreated EventType = "ticket_note_created"
	EventThreadCreated     EventType = "thread_created"
	EventThreadUpdated     EventType = "thread_updated"
	EventThreadNoteCreated EventType = "thread_note_created"
	EventMessageCreated    EventType = "message_created"
)

// Event is the envelope pushed to realtime subscribers.
type Event struct {
	Type                EventType `json:"type"`
	HotelID             string    `json:"hotelId"`
	TicketID            string    `json:"ticketId,omitempty"`
	ThreadID            string    `json:"threadId,omitempty"`
	MessageID           string    `json:"messageId,omitempty"`
	NoteID              string    `json:"noteId,omitempty"`
	StayID              *string   `json:"stayId,omitempty"`
	Department          string    `json:"department,omitempty"`
	Status              string    `json:"status,omitempty"`
	AssignedStaffUserID *string   `json:"assignedStaffUserId"`
	UpdatedAt           time.Time `json:"updatedAt"`
	// Version is the committed record version for created/updated events and
	// zero for append-only events (messages, notes).
	Version int64 `json:"version,omitempty"`
	// Seq is the per-store message sequence of message_created events.
	// Events of one thread are published in ascending seq.
	Seq int64 `json:"seq,omitempty"`
	Data    any   `json:"data,omitempty"`
	// Internal events (staff notes) are never delivered to guest subscriptions.
	Internal bool `json:"-"`
}

// recordKey identifies the record whose commit order the event follows.
func (e Event) recordKey() string {
	switch e.Type {
	case EventTicketCreated, EventTicketUpdated:
		return "ticket:" + e.TicketID
	case EventThreadCreated, EventThreadUpdated:
		return "thread:" + e.ThreadID
	}
	return ""
}

// TicketEvent builds a ticket_created/ticket_updated envelope from a committed snapshot.
func TicketEvent(eventType EventType, ticket *domain.Ticket) Event {
	return Event{
		Type:                eventType,
		HotelID:             ticket.HotelID,
		TicketID:            ticket.ID,
		StayID:              ticket.StayID,
		Department:          ticket.Department,
		Status:              string(ticket.Status),
		AssignedStaffUserID: ticket.AssignedStaffUserID,
		UpdatedAt:           ticket.UpdatedAt,
		Version:             ticket.Version,
		Data: TicketData{
			RoomNumber:    ticket.RoomNumber,
			Title:         ticket.Title,
			ServiceItemID: ticket.ServiceItemID,
		},
	}
}

// ThreadEvent builds a thread_created/thread_updated envelope from a committed snapshot.
func ThreadEvent(eventType EventType, thread *domain.Thread) Event {
	stayID := thread.StayID
	return Event{
		Type:                eventType,
		HotelID:             thread.HotelID,
		ThreadID:            thread.ID,
		StayID:              &stayID,
		Department:          thread.Department,
		Status:              string(thread.Status),
		AssignedStaffUserID: thread.AssignedStaffUserID,
		UpdatedAt:           thread.UpdatedAt,
		Version:             thread.Version,
		Data: ThreadData{
			Title:           thread.Title,
			GuestLastReadAt: thread.GuestLastReadAt,
		},
	}
}

// MessageEvent builds a message_created envelope.
func MessageEvent(thread *domain.Thread, msg *domain.Message) Event {
	stayID := thread.StayID
	return Event{
		Type:                EventMessageCreated,
		HotelID:             thread.HotelID,
		ThreadID:            thread.ID,
		MessageID:           msg.ID,
		Seq:                 msg.Seq,
		StayID:              &stayID,
		Department:          thread.Department,
		Status:              string(thread.Status),
		AssignedStaffUserID: thread.AssignedStaffUserID,
		UpdatedAt:           msg.CreatedAt,
		Data: MessageData{
			SenderType: msg.SenderType,
			SenderName: msg.SenderName,
			BodyText:   msg.BodyText,
		},
	}
}

// TicketNoteEvent builds a ticket_note_created envelope.
func TicketNoteEvent(ticket *domain.Ticket, note *domain.Note) Event {
	return Event{
		Type:                EventTicketNoteCreated,
		HotelID:             ticket.HotelID,
		TicketID:            ticket.ID,
		NoteID:              note.ID,
		StayID:              ticket.StayID,
		Department:          ticket.Department,
		Status:              string(ticket.Status),
		AssignedStaffUserID: ticket.AssignedStaffUserID,
		UpdatedAt:           note.CreatedAt,
		Data:                noteData(note),
		Internal:            true,
	}
}

// ThreadNoteEvent builds a thread_note_created envelope.
func ThreadNoteEvent(thread *domain.Thread, note *domain.Note) Event {
	stayID := thread.StayID
	return Event{
		Type:                EventThreadNoteCreated,
		HotelID:             thread.HotelID,
		ThreadID:            thread.ID,
		NoteID:              note.ID,
		StayID:              &stayID,
		Department:          thread.Department,
		Status:              string(thread.Status),
		AssignedStaffUserID: thread.AssignedStaffUserID,
		UpdatedAt:           note.CreatedAt,
		Data:                noteData(note),
		Internal:            true,
	}
}

// TicketData is the ticket-specific part of an envelope.
type TicketData struct {
	RoomNumber    string  `json:"roomNumber,omitempty"`
	Title         string  `json:"title"`
	ServiceItemID *string `json:"serviceItemId,omitempty"`
}

// ThreadData is the thread-specific part of an envelope.
type ThreadData struct {
	Title           string     `json:"title"`
	GuestLastReadAt *time.Time `json:"guestLastReadAt,omitempty"`
}

// MessageData carries the message body.
type MessageData struct {
	SenderType domain.SenderType `json:"senderType"`
	SenderName string            `json:"senderName"`
	BodyText   string            `json:"bodyText"`
}

// NoteData carries the note body. Notes are staff-only.
type NoteData struct {
	AuthorStaffUserID string `json:"authorStaffUserId"`
	AuthorName        string `json:"authorName"`
	BodyText          string `json:"bodyText"`
}

func noteData(note *domain.Note) NoteData {
	return NoteData{
		AuthorStaffUserID: note.AuthorStaffUserID,
		AuthorName:        note.AuthorName,
		BodyText:          note.BodyText,
	}
}
