package domain

import "time"

// ThreadStatus enumerates lifecycle states for conversations.
type ThreadStatus string

const (
	ThreadStatusPending    ThreadStatus = "pending"
	ThreadStatusInProgress ThreadStatus = "in_progress"
	ThreadStatusResolved   ThreadStatus = "resolved"
	ThreadStatusArchived   ThreadStatus = "archived"
)

// Valid reports whether the status belongs to the thread status set.
func (s ThreadStatus) Valid() bool {
	switch s {
	case ThreadStatusPending, ThreadStatusInProgress, ThreadStatusResolved, ThreadStatusArchived:
		return true
	}
	return false
}

// Thread is a department-scoped guest/staff conversation. Archived is terminal.
type Thread struct {
	ID                  string
	HotelID             string
	StayID              string
	Department          string
	Status              ThreadStatus
	Title               string
	AssignedStaffUserID *string
	GuestLastReadAt     *time.Time
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (t Thread) Archived() bool {
	return t.Status == ThreadStatusArchived
}

// Clone returns a deep copy safe to mutate.
func (t Thread) Clone() Thread {
	out := t
	out.AssignedStaffUserID = cloneString(t.AssignedStaffUserID)
	if t.GuestLastReadAt != nil {
		ts := *t.GuestLastReadAt
		out.GuestLastReadAt = &ts
	}
	return out
}
