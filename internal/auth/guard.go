package auth

import "github.com/spec-kit/guest-services/internal/domain"

// Scope identifies the hotel, stay and department a resource belongs to.
type Scope struct {
	HotelID    string
	StayID     *string
	Department string
}

// TicketScope returns the authorization scope of a ticket.
func TicketScope(ticket *domain.Ticket) Scope {
	return Scope{HotelID: ticket.HotelID, StayID: ticket.StayID, Department: ticket.Department}
}

// ThreadScope returns the authorization scope of a thread.
func ThreadScope(thread *domain.Thread) Scope {
	stayID := thread.StayID
	return Scope{HotelID: thread.HotelID, StayID: &stayID, Department: thread.Department}
}

// CanAct decides whether principal may act on a resource in scope. It is
// pure: no I/O and no dependence on anything but its arguments.
func CanAct(principal domain.Principal, scope Scope) bool {
	switch principal.Kind {
	case domain.PrincipalPlatformAdmin:
		return true
	case domain.PrincipalGuest:
		if principal.StayID == nil || scope.StayID == nil {
			return false
		}
		return *principal.StayID == *scope.StayID
	case domain.PrincipalStaff:
		if principal.HotelID == nil || *principal.HotelID != scope.HotelID {
			return false
		}
		return CanSeeDepartment(principal, scope.Department)
	}
	return false
}

// CanSeeDepartment reports whether a staff principal may act on department,
// ignoring hotel scope. Admins and managers see all departments.
func CanSeeDepartment(principal domain.Principal, department string) bool {
	if principal.IsPrivileged() {
		return true
	}
	if !principal.IsStaff() {
		return false
	}
	target := domain.NormalizeDepartment(department)
	for _, dept := range principal.Departments {
		if domain.NormalizeDepartment(dept) == target {
			return true
		}
	}
	return false
}
