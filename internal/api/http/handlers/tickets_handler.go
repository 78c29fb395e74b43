package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-services/internal/api/dto"
	"github.com/spec-kit/guest-services/internal/auth"
	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/service"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// TicketsHandler manages ticket endpoints for guests and staff.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /v1/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		HotelID:       req.HotelID,
		StayID:        req.StayID,
		RoomNumber:    strings.TrimSpace(req.RoomNumber),
		Department:    req.Department,
		Title:         req.Title,
		Status:        req.Status,
		ServiceItemID: req.ServiceItemID,
		Payload:       req.Payload,
		Assignment:    assignmentFrom(req.AssignedStaffUserID),
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /v1/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /v1/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patch := service.TicketPatch{
		Status:     req.Status,
		Assignment: assignmentFrom(req.AssignedStaffUserID),
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), principal, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AddNote POST /v1/tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateNoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := h.service.AddTicketNote(c.UserContext(), principal, c.Params("id"), req.BodyText)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewNoteResponse(note)})
}

// History GET /v1/tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListTicketHistory(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}

func principalFrom(c *fiber.Ctx) (domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func assignmentFrom(field dto.OptionalString) service.AssignmentRequest {
	if !field.Set {
		return service.AssignmentRequest{}
	}
	if field.Value == nil {
		return service.Unassign()
	}
	return service.AssignTo(strings.TrimSpace(*field.Value))
}
