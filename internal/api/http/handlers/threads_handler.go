package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guest-services/internal/api/dto"
	"github.com/spec-kit/guest-services/internal/service"
)

// ThreadsHandler manages conversation endpoints.
type ThreadsHandler struct {
	service *service.ThreadService
}

// NewThreadsHandler constructs handler.
func NewThreadsHandler(threadService *service.ThreadService) *ThreadsHandler {
	return &ThreadsHandler{service: threadService}
}

// CreateThread POST /v1/threads.
func (h *ThreadsHandler) CreateThread(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateThreadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	thread, err := h.service.CreateThread(c.UserContext(), principal, service.ThreadCreateInput{
		HotelID:      req.HotelID,
		StayID:       req.StayID,
		Department:   req.Department,
		Title:        req.Title,
		FirstMessage: req.FirstMessage,
		Payload:      req.Payload,
		Assignment:   assignmentFrom(req.AssignedStaffUserID),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewThreadResponse(thread)})
}

// GetThread GET /v1/threads/:id.
func (h *ThreadsHandler) GetThread(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	thread, err := h.service.GetThread(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewThreadResponse(thread)})
}

// UpdateThread PATCH /v1/threads/:id.
func (h *ThreadsHandler) UpdateThread(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateThreadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	thread, err := h.service.UpdateThread(c.UserContext(), principal, c.Params("id"), service.ThreadPatch{
		Status:     req.Status,
		Assignment: assignmentFrom(req.AssignedStaffUserID),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewThreadResponse(thread)})
}

// ArchiveThread POST /v1/threads/:id/archive.
func (h *ThreadsHandler) ArchiveThread(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	thread, err := h.service.ArchiveThread(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewThreadResponse(thread)})
}

// MarkRead POST /v1/threads/:id/read.
func (h *ThreadsHandler) MarkRead(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	thread, err := h.service.MarkThreadRead(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewThreadResponse(thread)})
}

// ListMessages GET /v1/threads/:id/messages.
func (h *ThreadsHandler) ListMessages(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	msgs, err := h.service.ListMessages(c.UserContext(), principal, c.Params("id"), parseIntQuery(c, "limit", 200))
	if err != nil {
		return err
	}
	resp := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, dto.NewMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// PostMessage POST /v1/threads/:id/messages.
func (h *ThreadsHandler) PostMessage(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.service.PostMessage(c.UserContext(), principal, c.Params("id"), req.BodyText, req.Payload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMessageResponse(msg)})
}

// AddNote POST /v1/threads/:id/notes.
func (h *ThreadsHandler) AddNote(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateNoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := h.service.AddThreadNote(c.UserContext(), principal, c.Params("id"), req.BodyText)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewNoteResponse(note)})
}

// History GET /v1/threads/:id/history.
func (h *ThreadsHandler) History(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	entries, err := h.service.ListThreadHistory(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}
