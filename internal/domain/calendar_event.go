package domain

import "time"

// CalendarEventStatus tracks whether a stay-linked booking has been confirmed.
type CalendarEventStatus string

const (
	CalendarEventPending   CalendarEventStatus = "pending"
	CalendarEventConfirmed CalendarEventStatus = "confirmed"
	CalendarEventCancelled CalendarEventStatus = "cancelled"
)

// CalendarEvent is a guest itinerary entry, e.g. a restaurant reservation.
type CalendarEvent struct {
	ID        string
	HotelID   string
	StayID    string
	Title     string
	Status    CalendarEventStatus
	StartsAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
