package service

import (
	"context"
	"errors"
	"sort"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// AssignSelf is the assignment request alias for the acting staff member.
const AssignSelf = "me"

// AssignmentRequest is an optional assignment patch. Set with To nil unassigns.
type AssignmentRequest struct {
	Set bool
	To  *string
}

// AssignTo builds a request targeting staffUserID (or AssignSelf).
func AssignTo(staffUserID string) AssignmentRequest {
	return AssignmentRequest{Set: true, To: &staffUserID}
}

// Unassign builds a request that clears the assignee.
func Unassign() AssignmentRequest {
	return AssignmentRequest{Set: true}
}

// AssignmentService resolves default assignees and validates assignment changes.
type AssignmentService struct {
	staff repository.StaffRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(staff repository.StaffRepository) *AssignmentService {
	return &AssignmentService{staff: staff}
}

// assigneeRank orders candidates: department staff, department manager,
// department admin, then managers and admins without the department.
func assigneeRank(member domain.StaffMember, department string) int {
	inDept := member.InDepartment(department)
	switch {
	case inDept && member.Role == domain.StaffRoleStaff:
		return 1
	case inDept && member.Role == domain.StaffRoleManager:
		return 2
	case inDept && member.Role == domain.StaffRoleAdmin:
		return 3
	case member.Role == domain.StaffRoleManager:
		return 4
	case member.Role == domain.StaffRoleAdmin:
		return 5
	}
	return 0
}

// PickDefaultAssignee returns the best active candidate for department in
// hotelID, or nil when none exists.
func (s *AssignmentService) PickDefaultAssignee(ctx context.Context, hotelID, department string) (*string, error) {
	active := true
	staffList, err := s.staff.List(ctx, repository.StaffFilter{HotelID: hotelID, Active: &active})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	department = domain.NormalizeDepartment(department)
	type candidate struct {
		member domain.StaffMember
		rank   int
	}
	candidates := make([]candidate, 0, len(staffList))
	for _, member := range staffList {
		if rank := assigneeRank(member, department); rank > 0 {
			candidates = append(candidates, candidate{member: member, rank: rank})
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if !a.member.CreatedAt.Equal(b.member.CreatedAt) {
			return a.member.CreatedAt.Before(b.member.CreatedAt)
		}
		return a.member.ID < b.member.ID
	})
	id := candidates[0].member.ID
	return &id, nil
}

// ValidateAssignmentChange resolves the requested assignee for a record of
// hotelID against the caller's rights. requested nil means unassign.
func (s *AssignmentService) ValidateAssignmentChange(ctx context.Context, principal domain.Principal, hotelID string, current, requested *string) (*string, error) {
	if !principal.IsStaff() && !principal.IsPlatformAdmin() {
		return nil, apperrors.NewForbidden("only staff may change assignment")
	}

	var resolved *string
	if requested != nil {
		target := *requested
		self := principal.IsStaff() && (target == AssignSelf || target == principal.StaffUserID)
		switch {
		case self:
			id := principal.StaffUserID
			resolved = &id
		case target == AssignSelf:
			return nil, apperrors.NewInvalidAssignedTo(target)
		case !principal.IsPrivileged():
			return nil, apperrors.NewForbidden("only managers and admins may assign other staff")
		default:
			member, err := s.staff.GetByID(ctx, target)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, apperrors.NewInvalidAssignedTo(target)
				}
				return nil, apperrors.MapError(err)
			}
			if member.HotelID != hotelID || !member.Active {
				return nil, apperrors.NewInvalidAssignedTo(target)
			}
			id := member.ID
			resolved = &id
		}
	}

	if err := CheckAssignmentTheft(principal, current, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// CheckAssignmentTheft rejects a role=staff principal moving or clearing an
// assignment held by someone else. It is re-run against the committed
// snapshot inside the store update.
func CheckAssignmentTheft(principal domain.Principal, current, next *string) error {
	if principal.IsPrivileged() || current == nil {
		return nil
	}
	if *current == principal.StaffUserID || domain.SameString(current, next) {
		return nil
	}
	return apperrors.NewAlreadyAssigned(*current)
}
