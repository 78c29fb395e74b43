package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-services/internal/api/dto"
	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/service"
)

// StaffHandler serves the hotel roster.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// ListStaff handles GET /v1/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	list, err := h.staff.ListStaffMembers(c.UserContext(), principal, parseStaffListFilters(c))
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, dto.NewStaffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetStaff handles GET /v1/staff/:id. "me" resolves to the caller.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	member, err := h.staff.GetStaffMemberByID(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(member)})
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	filters := service.StaffListFilters{
		HotelID:    c.Query("hotelId"),
		Department: c.Query("department"),
		Limit:      parseIntQuery(c, "limit", 200),
	}
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.StaffRole(roleStr)
		filters.Role = &role
	}
	filters.IncludeInactive = parseBoolQuery(c, "includeInactive", false)
	return filters
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}
