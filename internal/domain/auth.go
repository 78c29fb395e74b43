package domain

// PrincipalKind differentiates the authenticated actor types.
type PrincipalKind string

const (
	PrincipalGuest         PrincipalKind = "guest"
	PrincipalStaff         PrincipalKind = "staff"
	PrincipalPlatformAdmin PrincipalKind = "platform_admin"
)

// Principal is the already-authenticated caller. The workflow never mutates it.
type Principal struct {
	Kind PrincipalKind

	// guest
	GuestID string
	StayID  *string

	// guest (optional) and staff
	HotelID *string

	// staff
	StaffUserID string
	Role        StaffRole
	Departments []string
	Name        string
}

// GuestPrincipal builds a guest principal bound to a stay.
func GuestPrincipal(guestID, hotelID, stayID string) Principal {
	return Principal{Kind: PrincipalGuest, GuestID: guestID, HotelID: &hotelID, StayID: &stayID}
}

// StaffPrincipal builds a staff principal scoped to a hotel.
func StaffPrincipal(staffUserID, hotelID string, role StaffRole, departments ...string) Principal {
	return Principal{Kind: PrincipalStaff, StaffUserID: staffUserID, HotelID: &hotelID, Role: role, Departments: departments}
}

func (p Principal) IsGuest() bool { return p.Kind == PrincipalGuest }

func (p Principal) IsStaff() bool { return p.Kind == PrincipalStaff }

func (p Principal) IsPlatformAdmin() bool { return p.Kind == PrincipalPlatformAdmin }

// IsPrivileged reports whether the principal bypasses department and assignment restrictions.
func (p Principal) IsPrivileged() bool {
	if p.IsPlatformAdmin() {
		return true
	}
	return p.IsStaff() && p.Role.Privileged()
}

// HotelIDValue returns the hotel id or an empty string.
func (p Principal) HotelIDValue() string {
	if p.HotelID == nil {
		return ""
	}
	return *p.HotelID
}

// StayIDValue returns the stay id or an empty string.
func (p Principal) StayIDValue() string {
	if p.StayID == nil {
		return ""
	}
	return *p.StayID
}
