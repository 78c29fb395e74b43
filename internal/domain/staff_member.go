package domain

import "time"

// StaffRole enumerates hotel operator roles.
type StaffRole string

const (
	StaffRoleStaff   StaffRole = "staff"
	StaffRoleManager StaffRole = "manager"
	StaffRoleAdmin   StaffRole = "admin"
)

// Privileged roles see every department and may assign third parties.
func (r StaffRole) Privileged() bool {
	return r == StaffRoleManager || r == StaffRoleAdmin
}

// StaffMember models a hotel employee who can be assigned work.
type StaffMember struct {
	ID          string
	HotelID     string
	Name        string
	Email       string
	Role        StaffRole
	Departments []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InDepartment reports whether the member is scoped to the normalized department.
func (s StaffMember) InDepartment(department string) bool {
	target := NormalizeDepartment(department)
	for _, dept := range s.Departments {
		if NormalizeDepartment(dept) == target {
			return true
		}
	}
	return false
}
