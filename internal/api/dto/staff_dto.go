package dto

import (
	"time"

	"github.com/spec-kit/guest-services/internal/domain"
)

// StaffResponse is the roster entry shown in assignment pickers.
type StaffResponse struct {
	ID          string           `json:"id"`
	HotelID     string           `json:"hotelId"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Role        domain.StaffRole `json:"role"`
	Departments []string         `json:"departments"`
	Active      bool             `json:"active"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NewStaffResponse maps a domain staff member.
func NewStaffResponse(member *domain.StaffMember) StaffResponse {
	departments := member.Departments
	if departments == nil {
		departments = []string{}
	}
	return StaffResponse{
		ID:          member.ID,
		HotelID:     member.HotelID,
		Name:        member.Name,
		Email:       member.Email,
		Role:        member.Role,
		Departments: departments,
		Active:      member.Active,
		CreatedAt:   member.CreatedAt,
	}
}
