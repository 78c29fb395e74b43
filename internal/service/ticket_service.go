package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/auth"
	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/events"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	notes       repository.NoteRepository
	assignments *AssignmentService
	workflow    *Workflow
	logger      *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	NoteRepo    repository.NoteRepository
	Assignments *AssignmentService
	Workflow    *Workflow
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	wf := deps.Workflow
	if wf == nil {
		wf = NewWorkflow(WorkflowDependencies{Logger: logger})
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		notes:       deps.NoteRepo,
		assignments: deps.Assignments,
		workflow:    wf,
		logger:      logger,
	}
}

// TicketCreateInput describes ticket creation payload. Guests take hotel
// and stay from their principal.
type TicketCreateInput struct {
	HotelID       string
	StayID        *string
	RoomNumber    string
	Department    string
	Title         string
	Status        *domain.TicketStatus
	ServiceItemID *string
	Payload       json.RawMessage
	Assignment    AssignmentRequest
}

// TicketPatch is a combined status and assignment update.
type TicketPatch struct {
	Status     *domain.TicketStatus
	Assignment AssignmentRequest
}

// CreateTicket files a service request. Guest-initiated tickets are seeded
// with the default assignee of their department.
func (s *TicketService) CreateTicket(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	ticket, err := s.createTicket(ctx, principal, input)
	s.workflow.recordOutcome("ticket", err)
	return ticket, err
}

func (s *TicketService) createTicket(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	hotelID, stayID, err := resolveStayScope(principal, input.HotelID, input.StayID)
	if err != nil {
		return nil, err
	}
	department := domain.NormalizeDepartment(input.Department)
	if department == "" {
		return nil, apperrors.NewValidationError("department is required", nil)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	status := domain.TicketStatusPending
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewInvalidStatus(string(*input.Status))
		}
		status = *input.Status
	}
	if len(input.Payload) > 0 && !json.Valid(input.Payload) {
		return nil, apperrors.NewValidationError("payload must be valid JSON", nil)
	}

	if !auth.CanAct(principal, auth.Scope{HotelID: hotelID, StayID: stayID, Department: department}) {
		return nil, apperrors.NewForbidden("access denied")
	}

	ticket := &domain.Ticket{
		HotelID:       hotelID,
		StayID:        stayID,
		RoomNumber:    strings.TrimSpace(input.RoomNumber),
		Department:    department,
		Status:        status,
		Title:         title,
		ServiceItemID: input.ServiceItemID,
		Payload:       input.Payload,
	}
	switch {
	case principal.IsGuest():
		assignee, err := s.assignments.PickDefaultAssignee(ctx, hotelID, department)
		if err != nil {
			return nil, err
		}
		ticket.AssignedStaffUserID = assignee
	case input.Assignment.Set:
		assignee, err := s.assignments.ValidateAssignmentChange(ctx, principal, hotelID, nil, input.Assignment.To)
		if err != nil {
			return nil, err
		}
		ticket.AssignedStaffUserID = assignee
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.workflow.commit(ctx, ticketChange(events.EventTicketCreated, principal, nil, ticket))
	return ticket, nil
}

// GetTicket returns a ticket the principal may see.
func (s *TicketService) GetTicket(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err, "ticket", ticketID)
	}
	if !auth.CanAct(principal, auth.TicketScope(ticket)) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// UpdateTicket applies a staff status and/or assignment patch. Any status
// in the ticket status set may follow any other.
func (s *TicketService) UpdateTicket(ctx context.Context, principal domain.Principal, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.updateTicket(ctx, principal, ticketID, patch)
	s.workflow.recordOutcome("ticket", err)
	return ticket, err
}

func (s *TicketService) updateTicket(ctx context.Context, principal domain.Principal, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	current, err := s.GetTicket(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}
	if principal.IsGuest() {
		return nil, apperrors.NewForbidden("only staff may update tickets")
	}
	if patch.Status == nil && !patch.Assignment.Set {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewInvalidStatus(string(*patch.Status))
	}

	var assignee *string
	if patch.Assignment.Set {
		assignee, err = s.assignments.ValidateAssignmentChange(ctx, principal, current.HotelID, current.AssignedStaffUserID, patch.Assignment.To)
		if err != nil {
			return nil, err
		}
	}

	prev, next, err := s.tickets.Update(ctx, ticketID, func(t *domain.Ticket) error {
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.Assignment.Set {
			if err := CheckAssignmentTheft(principal, t.AssignedStaffUserID, assignee); err != nil {
				return err
			}
			t.AssignedStaffUserID = assignee
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "ticket", ticketID)
	}
	s.workflow.commit(ctx, ticketChange(events.EventTicketUpdated, principal, prev, next))
	return next, nil
}

// AddTicketNote stores an internal staff note on a ticket.
func (s *TicketService) AddTicketNote(ctx context.Context, principal domain.Principal, ticketID, body string) (*domain.Note, error) {
	if principal.IsGuest() {
		return nil, apperrors.NewForbidden("only staff may add notes")
	}
	ticket, err := s.GetTicket(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("bodyText is required", nil)
	}
	note := &domain.Note{
		HotelID:           ticket.HotelID,
		TicketID:          &ticket.ID,
		AuthorStaffUserID: principal.StaffUserID,
		AuthorName:        principal.Name,
		BodyText:          body,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.workflow.publish(ctx, events.TicketNoteEvent(ticket, note))
	return note, nil
}
