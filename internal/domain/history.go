package domain

import "time"

// ChangeType captures what changed in a history entry.
type ChangeType string

const (
	ChangeTypeCreated  ChangeType = "created"
	ChangeTypeStatus   ChangeType = "status_change"
	ChangeTypeAssignee ChangeType = "assignee_change"
)

// HistoryEntry is an immutable audit trail entry for a ticket or thread.
type HistoryEntry struct {
	ID         string
	HotelID    string
	EntityType string // "ticket" or "thread"
	EntityID   string
	ActorKind  PrincipalKind
	ActorID    *string
	ChangeType ChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
