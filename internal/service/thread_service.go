package service

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/auth"
	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/events"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// ThreadService coordinates conversation workflows.
type ThreadService struct {
	threads     repository.ThreadRepository
	messages    repository.MessageRepository
	notes       repository.NoteRepository
	assignments *AssignmentService
	workflow    *Workflow
	logger      *zap.Logger
	now         func() time.Time
	appendLocks threadLocks
}

// threadLocks serializes message appends per thread over a fixed set of
// mutexes, so message_created events leave in seq order.
type threadLocks struct {
	stripes [64]sync.Mutex
}

func (l *threadLocks) lock(threadID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(threadID))
	mu := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mu.Lock()
	return mu.Unlock
}

// ThreadDependencies bundles repositories for thread service.
type ThreadDependencies struct {
	ThreadRepo  repository.ThreadRepository
	MessageRepo repository.MessageRepository
	NoteRepo    repository.NoteRepository
	Assignments *AssignmentService
	Workflow    *Workflow
	Logger      *zap.Logger
}

// NewThreadService constructs the service.
func NewThreadService(deps ThreadDependencies) *ThreadService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	wf := deps.Workflow
	if wf == nil {
		wf = NewWorkflow(WorkflowDependencies{Logger: logger})
	}
	return &ThreadService{
		threads:     deps.ThreadRepo,
		messages:    deps.MessageRepo,
		notes:       deps.NoteRepo,
		assignments: deps.Assignments,
		workflow:    wf,
		logger:      logger,
		now:         time.Now,
	}
}

// ThreadCreateInput describes thread creation. Guests take hotel and stay
// from their principal.
type ThreadCreateInput struct {
	HotelID      string
	StayID       string
	Department   string
	Title        string
	FirstMessage string
	Payload      json.RawMessage
	Assignment   AssignmentRequest
}

// ThreadPatch is a combined status and assignment update.
type ThreadPatch struct {
	Status     *domain.ThreadStatus
	Assignment AssignmentRequest
}

// CreateThread opens a conversation. Guest-initiated threads are seeded with
// the default assignee of their department.
func (s *ThreadService) CreateThread(ctx context.Context, principal domain.Principal, input ThreadCreateInput) (*domain.Thread, error) {
	thread, err := s.createThread(ctx, principal, input)
	s.workflow.recordOutcome("thread", err)
	return thread, err
}

func (s *ThreadService) createThread(ctx context.Context, principal domain.Principal, input ThreadCreateInput) (*domain.Thread, error) {
	hotelID, stayID, err := resolveStayScope(principal, input.HotelID, &input.StayID)
	if err != nil {
		return nil, err
	}
	if stayID == nil || *stayID == "" {
		return nil, apperrors.NewValidationError("stayId is required", nil)
	}
	department := domain.NormalizeDepartment(input.Department)
	if department == "" {
		return nil, apperrors.NewValidationError("department is required", nil)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	scope := auth.Scope{HotelID: hotelID, StayID: stayID, Department: department}
	if !auth.CanAct(principal, scope) {
		return nil, apperrors.NewForbidden("access denied")
	}

	thread := &domain.Thread{
		HotelID:    hotelID,
		StayID:     *stayID,
		Department: department,
		Status:     domain.ThreadStatusPending,
		Title:      title,
	}
	switch {
	case principal.IsGuest():
		assignee, err := s.assignments.PickDefaultAssignee(ctx, hotelID, department)
		if err != nil {
			return nil, err
		}
		thread.AssignedStaffUserID = assignee
	case input.Assignment.Set:
		assignee, err := s.assignments.ValidateAssignmentChange(ctx, principal, hotelID, nil, input.Assignment.To)
		if err != nil {
			return nil, err
		}
		thread.AssignedStaffUserID = assignee
	}

	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.workflow.commit(ctx, threadChange(events.EventThreadCreated, principal, nil, thread))

	if body := strings.TrimSpace(input.FirstMessage); body != "" {
		senderType, senderName := sender(principal)
		if _, err := s.appendMessage(ctx, thread, senderType, senderName, body, input.Payload); err != nil {
			s.logger.Warn("first message not stored",
				zap.String("thread_id", thread.ID), zap.Error(err))
		}
	}
	return thread, nil
}

// GetThread returns a thread the principal may see.
func (s *ThreadService) GetThread(ctx context.Context, principal domain.Principal, threadID string) (*domain.Thread, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, mapStoreError(err, "thread", threadID)
	}
	if !auth.CanAct(principal, auth.ThreadScope(thread)) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return thread, nil
}

// UpdateThread applies a staff status and/or assignment patch.
func (s *ThreadService) UpdateThread(ctx context.Context, principal domain.Principal, threadID string, patch ThreadPatch) (*domain.Thread, error) {
	thread, err := s.updateThread(ctx, principal, threadID, patch)
	s.workflow.recordOutcome("thread", err)
	return thread, err
}

// ArchiveThread moves a thread to its terminal state.
func (s *ThreadService) ArchiveThread(ctx context.Context, principal domain.Principal, threadID string) (*domain.Thread, error) {
	archived := domain.ThreadStatusArchived
	return s.UpdateThread(ctx, principal, threadID, ThreadPatch{Status: &archived})
}

func (s *ThreadService) updateThread(ctx context.Context, principal domain.Principal, threadID string, patch ThreadPatch) (*domain.Thread, error) {
	current, err := s.GetThread(ctx, principal, threadID)
	if err != nil {
		return nil, err
	}
	if principal.IsGuest() {
		return nil, apperrors.NewForbidden("only staff may update threads")
	}
	if current.Archived() {
		return nil, apperrors.NewThreadArchived(current.ID)
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

	prev, next, err := s.threads.Update(ctx, threadID, func(t *domain.Thread) error {
		if t.Archived() {
			return apperrors.NewThreadArchived(t.ID)
		}
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
		return nil, mapStoreError(err, "thread", threadID)
	}
	s.workflow.commit(ctx, threadChange(events.EventThreadUpdated, principal, prev, next))
	return next, nil
}

// PostMessage appends a guest or staff message. Archived threads reject it.
func (s *ThreadService) PostMessage(ctx context.Context, principal domain.Principal, threadID, body string, payload json.RawMessage) (*domain.Message, error) {
	thread, err := s.GetThread(ctx, principal, threadID)
	if err != nil {
		return nil, err
	}
	if thread.Archived() {
		return nil, apperrors.NewThreadArchived(thread.ID)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("bodyText is required", nil)
	}
	senderType, senderName := sender(principal)
	return s.appendMessage(ctx, thread, senderType, senderName, body, payload)
}

// ListMessages returns a thread's messages in order.
func (s *ThreadService) ListMessages(ctx context.Context, principal domain.Principal, threadID string, limit int) ([]domain.Message, error) {
	if _, err := s.GetThread(ctx, principal, threadID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByThread(ctx, threadID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// AddThreadNote stores an internal staff note.
func (s *ThreadService) AddThreadNote(ctx context.Context, principal domain.Principal, threadID, body string) (*domain.Note, error) {
	if principal.IsGuest() {
		return nil, apperrors.NewForbidden("only staff may add notes")
	}
	thread, err := s.GetThread(ctx, principal, threadID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("bodyText is required", nil)
	}
	note := &domain.Note{
		HotelID:           thread.HotelID,
		ThreadID:          &thread.ID,
		AuthorStaffUserID: principal.StaffUserID,
		AuthorName:        principal.Name,
		BodyText:          body,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.workflow.publish(ctx, events.ThreadNoteEvent(thread, note))
	return note, nil
}

// MarkThreadRead records that the guest has seen the thread.
func (s *ThreadService) MarkThreadRead(ctx context.Context, principal domain.Principal, threadID string) (*domain.Thread, error) {
	if !principal.IsGuest() {
		return nil, apperrors.NewForbidden("only guests track read state")
	}
	if _, err := s.GetThread(ctx, principal, threadID); err != nil {
		return nil, err
	}
	readAt := s.now().UTC()
	prev, next, err := s.threads.Update(ctx, threadID, func(t *domain.Thread) error {
		t.GuestLastReadAt = &readAt
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "thread", threadID)
	}
	s.workflow.commit(ctx, threadChange(events.EventThreadUpdated, principal, prev, next))
	return next, nil
}

// ensureStayThread returns the newest open thread of the stay in
// department, opening one when none exists.
func (s *ThreadService) ensureStayThread(ctx context.Context, actor domain.Principal, hotelID, stayID, department, title string) (*domain.Thread, error) {
	department = domain.NormalizeDepartment(department)
	thread, err := s.threads.FindOpenForStay(ctx, hotelID, stayID, department)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	thread = &domain.Thread{
		HotelID:    hotelID,
		StayID:     stayID,
		Department: department,
		Status:     domain.ThreadStatusInProgress,
		Title:      title,
	}
	if actor.IsStaff() {
		id := actor.StaffUserID
		thread.AssignedStaffUserID = &id
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, err
	}
	s.workflow.commit(ctx, threadChange(events.EventThreadCreated, actor, nil, thread))
	return thread, nil
}

func (s *ThreadService) appendStaffMessage(ctx context.Context, thread *domain.Thread, senderName, body string, payload json.RawMessage) (*domain.Message, error) {
	return s.appendMessage(ctx, thread, domain.SenderStaff, senderName, body, payload)
}

func (s *ThreadService) appendMessage(ctx context.Context, thread *domain.Thread, senderType domain.SenderType, senderName, body string, payload json.RawMessage) (*domain.Message, error) {
	msg := &domain.Message{
		ThreadID:   thread.ID,
		SenderType: senderType,
		SenderName: senderName,
		BodyText:   body,
		Payload:    payload,
	}
	// The seq is assigned and the event published under one lock; a later
	// append cannot overtake an earlier one on the wire.
	unlock := s.appendLocks.lock(thread.ID)
	defer unlock()
	if err := s.messages.Append(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrThreadClosed) {
			return nil, apperrors.NewThreadArchived(thread.ID)
		}
		return nil, apperrors.MapError(err)
	}
	s.workflow.publish(ctx, events.MessageEvent(thread, msg))
	return msg, nil
}

func sender(principal domain.Principal) (domain.SenderType, string) {
	if principal.IsGuest() {
		name := principal.Name
		if name == "" {
			name = "Guest"
		}
		return domain.SenderGuest, name
	}
	return domain.SenderStaff, staffDisplayName(principal)
}

// resolveStayScope derives the hotel and stay a new record belongs to.
// Guests are pinned to their principal; staff must stay in their hotel.
func resolveStayScope(principal domain.Principal, hotelID string, stayID *string) (string, *string, error) {
	if stayID != nil && *stayID == "" {
		stayID = nil
	}
	switch {
	case principal.IsGuest():
		if principal.StayID == nil || principal.HotelID == nil {
			return "", nil, apperrors.NewForbidden("guest has no active stay")
		}
		if hotelID != "" && hotelID != *principal.HotelID {
			return "", nil, apperrors.NewForbidden("access denied")
		}
		if stayID != nil && *stayID != *principal.StayID {
			return "", nil, apperrors.NewForbidden("access denied")
		}
		stay := *principal.StayID
		return *principal.HotelID, &stay, nil
	case principal.IsStaff():
		if hotelID == "" {
			hotelID = principal.HotelIDValue()
		}
		if hotelID != principal.HotelIDValue() {
			return "", nil, apperrors.NewForbidden("access denied")
		}
		return hotelID, stayID, nil
	case principal.IsPlatformAdmin():
		if hotelID == "" {
			hotelID = principal.HotelIDValue()
		}
		if hotelID == "" {
			return "", nil, apperrors.NewValidationError("hotelId is required", nil)
		}
		return hotelID, stayID, nil
	}
	return "", nil, apperrors.NewForbidden("access denied")
}
