package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/guest-services/internal/domain"
)

// OptionalString tells an absent JSON key apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON records that the key was present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	HotelID             string               `json:"hotelId" validate:"omitempty,max=64"`
	StayID              *string              `json:"stayId" validate:"omitempty,max=64"`
	RoomNumber          string               `json:"roomNumber" validate:"max=16"`
	Department          string               `json:"department" validate:"required,max=64"`
	Title               string               `json:"title" validate:"required,max=200"`
	Status              *domain.TicketStatus `json:"status"`
	ServiceItemID       *string              `json:"serviceItemId" validate:"omitempty,max=64"`
	Payload             json.RawMessage      `json:"payload"`
	AssignedStaffUserID OptionalString       `json:"assignedStaffUserId"`
}

// UpdateTicketRequest is a combined status and assignment patch. An absent
// assignedStaffUserId leaves the assignment alone; null unassigns.
type UpdateTicketRequest struct {
	Status              *domain.TicketStatus `json:"status"`
	AssignedStaffUserID OptionalString       `json:"assignedStaffUserId"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	BodyText string `json:"bodyText" validate:"required,max=4000"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID                  string              `json:"id"`
	HotelID             string              `json:"hotelId"`
	StayID              *string             `json:"stayId"`
	RoomNumber          string              `json:"roomNumber"`
	Department          string              `json:"department"`
	Status              domain.TicketStatus `json:"status"`
	Title               string              `json:"title"`
	AssignedStaffUserID *string             `json:"assignedStaffUserId"`
	ServiceItemID       *string             `json:"serviceItemId,omitempty"`
	Payload             json.RawMessage     `json:"payload,omitempty"`
	Version             int64               `json:"version"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// NoteResponse is the wire form of an internal note.
type NoteResponse struct {
	ID                string    `json:"id"`
	TicketID          *string   `json:"ticketId,omitempty"`
	ThreadID          *string   `json:"threadId,omitempty"`
	AuthorStaffUserID string    `json:"authorStaffUserId"`
	AuthorName        string    `json:"authorName"`
	BodyText          string    `json:"bodyText"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                  ticket.ID,
		HotelID:             ticket.HotelID,
		StayID:              ticket.StayID,
		RoomNumber:          ticket.RoomNumber,
		Department:          ticket.Department,
		Status:              ticket.Status,
		Title:               ticket.Title,
		AssignedStaffUserID: ticket.AssignedStaffUserID,
		ServiceItemID:       ticket.ServiceItemID,
		Payload:             ticket.Payload,
		Version:             ticket.Version,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
}

// NewNoteResponse maps a domain note.
func NewNoteResponse(note *domain.Note) NoteResponse {
	return NoteResponse{
		ID:                note.ID,
		TicketID:          note.TicketID,
		ThreadID:          note.ThreadID,
		AuthorStaffUserID: note.AuthorStaffUserID,
		AuthorName:        note.AuthorName,
		BodyText:          note.BodyText,
		CreatedAt:         note.CreatedAt,
	}
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID         string               `json:"id"`
	ChangeType domain.ChangeType    `json:"changeType"`
	ActorKind  domain.PrincipalKind `json:"actorKind"`
	ActorID    *string              `json:"actorId"`
	OldValue   map[string]any       `json:"oldValue,omitempty"`
	NewValue   map[string]any       `json:"newValue,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.HistoryEntry) []HistoryResponse {
	resp := make([]HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, HistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ActorKind:  entry.ActorKind,
			ActorID:    entry.ActorID,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
