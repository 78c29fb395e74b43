package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

func TestPickDefaultAssigneePrefersDepartmentStaff(t *testing.T) {
	h := newHarness(t)
	h.staff("C", 0, domain.StaffRoleAdmin)
	h.staff("B", 1, domain.StaffRoleManager, "spa")
	h.staff("A", 2, domain.StaffRoleStaff, "spa")

	got, err := h.assignments.PickDefaultAssignee(context.Background(), hotelID, "spa")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A", *got)
}

func TestPickDefaultAssigneeRanking(t *testing.T) {
	cases := []struct {
		name       string
		department string
		seed       func(h *harness)
		want       *string
	}{
		{
			name: "department manager before department admin",
			seed: func(h *harness) {
				h.staff("admin-dept", 0, domain.StaffRoleAdmin, "spa")
				h.staff("manager-dept", 1, domain.StaffRoleManager, "spa")
			},
			want: str("manager-dept"),
		},
		{
			name: "department admin before outside manager",
			seed: func(h *harness) {
				h.staff("manager", 0, domain.StaffRoleManager, "reception")
				h.staff("admin-dept", 1, domain.StaffRoleAdmin, "spa")
			},
			want: str("admin-dept"),
		},
		{
			name: "outside manager before outside admin",
			seed: func(h *harness) {
				h.staff("admin", 0, domain.StaffRoleAdmin)
				h.staff("manager", 1, domain.StaffRoleManager)
			},
			want: str("manager"),
		},
		{
			name: "earliest account wins a tie",
			seed: func(h *harness) {
				h.staff("late", 5, domain.StaffRoleStaff, "spa")
				h.staff("early", 1, domain.StaffRoleStaff, "spa")
			},
			want: str("early"),
		},
		{
			name: "staff outside the department are never picked",
			seed: func(h *harness) {
				h.staff("housekeeper", 0, domain.StaffRoleStaff, "housekeeping")
			},
			want: nil,
		},
		{
			name:       "department match ignores separator style",
			department: "room-service",
			seed: func(h *harness) {
				h.staff("rs", 0, domain.StaffRoleStaff, "room_service")
			},
			want: str("rs"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			tc.seed(h)
			department := tc.department
			if department == "" {
				department = "spa"
			}
			got, err := h.assignments.PickDefaultAssignee(context.Background(), hotelID, department)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPickDefaultAssigneeSkipsInactiveAndOtherHotels(t *testing.T) {
	h := newHarness(t)
	h.store.PutStaff(domain.StaffMember{ID: "gone", HotelID: hotelID, Role: domain.StaffRoleStaff, Departments: []string{"spa"}, Active: false, CreatedAt: baseTime})
	h.store.PutStaff(domain.StaffMember{ID: "elsewhere", HotelID: "hotel-2", Role: domain.StaffRoleStaff, Departments: []string{"spa"}, Active: true, CreatedAt: baseTime})

	got, err := h.assignments.PickDefaultAssignee(context.Background(), hotelID, "spa")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidateAssignmentChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.staff("alice", 0, domain.StaffRoleStaff, "spa")
	h.staff("bob", 1, domain.StaffRoleStaff, "spa")
	h.staff("mgr", 2, domain.StaffRoleManager)
	h.store.PutStaff(domain.StaffMember{ID: "foreign", HotelID: "hotel-2", Role: domain.StaffRoleStaff, Active: true, CreatedAt: baseTime})

	alice := staffPrincipal("alice", domain.StaffRoleStaff, "spa")
	manager := staffPrincipal("mgr", domain.StaffRoleManager)
	admin := staffPrincipal("adm", domain.StaffRoleAdmin)

	t.Run("me resolves to the caller", func(t *testing.T) {
		got, err := h.assignments.ValidateAssignmentChange(ctx, alice, hotelID, nil, str(AssignSelf))
		require.NoError(t, err)
		assert.Equal(t, "alice", *got)
	})

	t.Run("own id is self assignment", func(t *testing.T) {
		got, err := h.assignments.ValidateAssignmentChange(ctx, alice, hotelID, nil, str("alice"))
		require.NoError(t, err)
		assert.Equal(t, "alice", *got)
	})

	t.Run("staff cannot target a third party", func(t *testing.T) {
		_, err := h.assignments.ValidateAssignmentChange(ctx, alice, hotelID, nil, str("bob"))
		requireCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("manager assigns a colleague", func(t *testing.T) {
		got, err := h.assignments.ValidateAssignmentChange(ctx, manager, hotelID, str("alice"), str("bob"))
		require.NoError(t, err)
		assert.Equal(t, "bob", *got)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := h.assignments.ValidateAssignmentChange(ctx, manager, hotelID, nil, str("nobody"))
		requireCode(t, err, apperrors.CodeInvalidAssignedTo)
	})

	t.Run("target from another hotel", func(t *testing.T) {
		_, err := h.assignments.ValidateAssignmentChange(ctx, manager, hotelID, nil, str("foreign"))
		requireCode(t, err, apperrors.CodeInvalidAssignedTo)
	})

	t.Run("staff cannot unassign a colleague", func(t *testing.T) {
		_, err := h.assignments.ValidateAssignmentChange(ctx, alice, hotelID, str("bob"), nil)
		requireCode(t, err, apperrors.CodeAlreadyAssigned)
	})

	t.Run("staff cannot take over a colleague's record", func(t *testing.T) {
		_, err := h.assignments.ValidateAssignmentChange(ctx, alice, hotelID, str("bob"), str(AssignSelf))
		requireCode(t, err, apperrors.CodeAlreadyAssigned)
	})

	t.Run("staff may release their own record", func(t *testing.T) {
		got, err := h.assignments.ValidateAssignmentChange(ctx, alice, hotelID, str("alice"), nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("admin unassigns anyone", func(t *testing.T) {
		got, err := h.assignments.ValidateAssignmentChange(ctx, admin, hotelID, str("bob"), nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("platform admin cannot self assign", func(t *testing.T) {
		_, err := h.assignments.ValidateAssignmentChange(ctx, domain.Principal{Kind: domain.PrincipalPlatformAdmin}, hotelID, nil, str(AssignSelf))
		requireCode(t, err, apperrors.CodeInvalidAssignedTo)
	})

	t.Run("guests never change assignment", func(t *testing.T) {
		_, err := h.assignments.ValidateAssignmentChange(ctx, guest(), hotelID, nil, str(AssignSelf))
		requireCode(t, err, apperrors.CodeForbidden)
	})
}

func TestValidateAssignmentChangeMalformedTargetOnPostgresStore(t *testing.T) {
	// The pgx repository answers malformed ids before touching its pool.
	assignments := NewAssignmentService(repository.NewStaffRepository(nil))
	manager := staffPrincipal("mgr", domain.StaffRoleManager)

	_, err := assignments.ValidateAssignmentChange(context.Background(), manager, hotelID, nil, str("not-a-uuid"))
	requireCode(t, err, apperrors.CodeInvalidAssignedTo)
}
