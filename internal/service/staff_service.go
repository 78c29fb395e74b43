package service

import (
	"context"
	"errors"

	"github.com/spec-kit/guest-services/internal/auth"
	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// StaffService exposes the hotel roster to assignment pickers. Staff CRUD
// is owned by another system.
type StaffService struct {
	staff repository.StaffRepository
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	HotelID         string
	Department      string
	Role            *domain.StaffRole
	IncludeInactive bool
	Limit           int
}

// NewStaffService constructs the service.
func NewStaffService(staff repository.StaffRepository) *StaffService {
	return &StaffService{staff: staff}
}

// ListStaffMembers returns the roster of a hotel, oldest first. Non-privileged
// staff only see colleagues sharing one of their departments, and only
// privileged callers may include inactive members.
func (s *StaffService) ListStaffMembers(ctx context.Context, principal domain.Principal, filters StaffListFilters) ([]domain.StaffMember, error) {
	hotelID := filters.HotelID
	if hotelID == "" {
		hotelID = principal.HotelIDValue()
	}
	if err := requireRosterAccess(principal, hotelID); err != nil {
		return nil, err
	}
	department := domain.NormalizeDepartment(filters.Department)
	if department != "" && !auth.CanSeeDepartment(principal, department) {
		return nil, apperrors.NewForbidden("department not visible: " + department)
	}

	repoFilter := repository.StaffFilter{HotelID: hotelID, Role: filters.Role, Limit: filters.Limit}
	if !filters.IncludeInactive || !principal.IsPrivileged() {
		active := true
		repoFilter.Active = &active
	}
	switch {
	case department != "":
		repoFilter.Departments = []string{department}
	case !principal.IsPrivileged():
		if len(principal.Departments) == 0 {
			return s.selfOnly(ctx, principal, repoFilter)
		}
		repoFilter.Departments = principal.Departments
	}
	members, err := s.staff.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// selfOnly serves a role=staff caller without departments, who shares a
// department with nobody.
func (s *StaffService) selfOnly(ctx context.Context, principal domain.Principal, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	member, err := s.staff.GetByID(ctx, principal.StaffUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []domain.StaffMember{}, nil
		}
		return nil, apperrors.MapError(err)
	}
	if filter.Active != nil && member.Active != *filter.Active {
		return []domain.StaffMember{}, nil
	}
	if filter.Role != nil && member.Role != *filter.Role {
		return []domain.StaffMember{}, nil
	}
	return []domain.StaffMember{*member}, nil
}

// GetStaffMemberByID returns one member of the principal's hotel.
func (s *StaffService) GetStaffMemberByID(ctx context.Context, principal domain.Principal, id string) (*domain.StaffMember, error) {
	if id == AssignSelf {
		id = principal.StaffUserID
	}
	member, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("staff member", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := requireRosterAccess(principal, member.HotelID); err != nil {
		return nil, err
	}
	if principal.IsStaff() && !principal.IsPrivileged() && !sharesDepartment(principal, *member) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return member, nil
}

func requireRosterAccess(principal domain.Principal, hotelID string) error {
	switch {
	case principal.IsPlatformAdmin():
		if hotelID == "" {
			return apperrors.NewValidationError("hotelId is required", nil)
		}
		return nil
	case principal.IsStaff():
		if hotelID != principal.HotelIDValue() {
			return apperrors.NewForbidden("access denied")
		}
		return nil
	}
	return apperrors.NewForbidden("staff access required")
}

func sharesDepartment(principal domain.Principal, member domain.StaffMember) bool {
	if member.ID == principal.StaffUserID {
		return true
	}
	for _, dept := range principal.Departments {
		if member.InDepartment(dept) {
			return true
		}
	}
	return false
}
