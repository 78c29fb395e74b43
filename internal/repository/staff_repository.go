package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// StaffRepository reads hotel staff. Staff CRUD lives elsewhere.
type StaffRepository interface {
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
}

// StaffFilter defines query params for staff listing. Departments matches
// members in any of the listed (normalized) departments.
type StaffFilter struct {
	HotelID     string
	Role        *domain.StaffRole
	Active      *bool
	Departments []string
	Limit       int
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

const staffColumns = `id, hotel_id, name, email, role, departments, active_flag, created_at, updated_at`

// normalizedDepartments mirrors domain.NormalizeDepartment in SQL so rows
// written with legacy spellings still match.
const normalizedDepartments = `ARRAY(SELECT replace(lower(btrim(d)), '_', '-') FROM unnest(departments) AS d)`

func scanStaff(row pgx.CollectableRow) (domain.StaffMember, error) {
	var staff domain.StaffMember
	err := row.Scan(
		&staff.ID,
		&staff.HotelID,
		&staff.Name,
		&staff.Email,
		&staff.Role,
		&staff.Departments,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	)
	return staff, err
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	rows, err := r.pool.Query(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE id=$1`, id)
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	staff, err := pgx.CollectExactlyOneRow(rows, scanStaff)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return &staff, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members`
	args := []any{}
	clauses := []string{}

	if filter.HotelID != "" {
		args = append(args, filter.HotelID)
		clauses = append(clauses, fmt.Sprintf("hotel_id=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if depts := domain.NormalizeDepartments(filter.Departments); len(depts) > 0 {
		args = append(args, depts)
		clauses = append(clauses, fmt.Sprintf("%s && $%d::text[]", normalizedDepartments, len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT %d", limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	result, err := pgx.CollectRows(rows, scanStaff)
	if err != nil {
		return nil, fmt.Errorf("scan staff: %w", err)
	}
	return result, nil
}
