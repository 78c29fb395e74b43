package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/guest-services/internal/domain"
)

// CreateThreadRequest payload. Guests may omit hotelId and stayId.
type CreateThreadRequest struct {
	HotelID             string          `json:"hotelId" validate:"omitempty,max=64"`
	StayID              string          `json:"stayId" validate:"omitempty,max=64"`
	Department          string          `json:"department" validate:"required,max=64"`
	Title               string          `json:"title" validate:"required,max=200"`
	FirstMessage        string          `json:"firstMessage" validate:"max=4000"`
	Payload             json.RawMessage `json:"payload"`
	AssignedStaffUserID OptionalString  `json:"assignedStaffUserId"`
}

// UpdateThreadRequest mirrors UpdateTicketRequest for threads.
type UpdateThreadRequest struct {
	Status              *domain.ThreadStatus `json:"status"`
	AssignedStaffUserID OptionalString       `json:"assignedStaffUserId"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	BodyText string          `json:"bodyText" validate:"required,max=4000"`
	Payload  json.RawMessage `json:"payload"`
}

// ThreadResponse is the wire form of a thread.
type ThreadResponse struct {
	ID                  string              `json:"id"`
	HotelID             string              `json:"hotelId"`
	StayID              string              `json:"stayId"`
	Department          string              `json:"department"`
	Status              domain.ThreadStatus `json:"status"`
	Title               string              `json:"title"`
	AssignedStaffUserID *string             `json:"assignedStaffUserId"`
	GuestLastReadAt     *time.Time          `json:"guestLastReadAt,omitempty"`
	Version             int64               `json:"version"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// MessageResponse is the wire form of a thread message.
type MessageResponse struct {
	ID         string            `json:"id"`
	ThreadID   string            `json:"threadId"`
	SenderType domain.SenderType `json:"senderType"`
	SenderName string            `json:"senderName"`
	BodyText   string            `json:"bodyText"`
	Payload    json.RawMessage   `json:"payload,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// NewThreadResponse maps a domain thread.
func NewThreadResponse(thread *domain.Thread) ThreadResponse {
	return ThreadResponse{
		ID:                  thread.ID,
		HotelID:             thread.HotelID,
		StayID:              thread.StayID,
		Department:          thread.Department,
		Status:              thread.Status,
		Title:               thread.Title,
		AssignedStaffUserID: thread.AssignedStaffUserID,
		GuestLastReadAt:     thread.GuestLastReadAt,
		Version:             thread.Version,
		CreatedAt:           thread.CreatedAt,
		UpdatedAt:           thread.UpdatedAt,
	}
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		ThreadID:   msg.ThreadID,
		SenderType: msg.SenderType,
		SenderName: msg.SenderName,
		BodyText:   msg.BodyText,
		Payload:    msg.Payload,
		CreatedAt:  msg.CreatedAt,
	}
}
