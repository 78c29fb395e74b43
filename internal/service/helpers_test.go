package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/events"
	"github.com/spec-kit/guest-services/internal/repository"
	"github.com/spec-kit/guest-services/internal/repository/memory"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

const hotelID = "hotel-1"

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	store         *memory.Store
	broker        *events.Broker
	workflow      *Workflow
	assignments   *AssignmentService
	notifications *NotificationService
	tickets       *TicketService
	threads       *ThreadService
}

type harnessOption func(*NotificationDependencies)

func withOutbox(outbox repository.OutboxRepository) harnessOption {
	return func(d *NotificationDependencies) { d.OutboxRepo = outbox }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	store := memory.New()
	broker := events.NewBroker(events.BrokerConfig{BufferSize: 64}, nil, nil)
	t.Cleanup(broker.Close)

	notifDeps := NotificationDependencies{
		OutboxRepo: store.Outbox(),
		StaffRepo:  store.Staff(),
		HotelRepo:  store.Hotels(),
	}
	for _, opt := range opts {
		opt(&notifDeps)
	}
	notifications := NewNotificationService(notifDeps)
	wf := NewWorkflow(WorkflowDependencies{Broker: broker, Notifier: notifications, History: store.History()})
	assignments := NewAssignmentService(store.Staff())
	threads := NewThreadService(ThreadDependencies{
		ThreadRepo:  store.Threads(),
		MessageRepo: store.Messages(),
		NoteRepo:    store.Notes(),
		Assignments: assignments,
		Workflow:    wf,
	})
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		NoteRepo:    store.Notes(),
		Assignments: assignments,
		Workflow:    wf,
	})
	RegisterDefaultHooks(wf.Hooks(), threads, store.CalendarEvents())

	return &harness{
		store:         store,
		broker:        broker,
		workflow:      wf,
		assignments:   assignments,
		notifications: notifications,
		tickets:       tickets,
		threads:       threads,
	}
}

// staff seeds an active member; order controls CreatedAt.
func (h *harness) staff(id string, order int, role domain.StaffRole, departments ...string) domain.StaffMember {
	member := domain.StaffMember{
		ID:          id,
		HotelID:     hotelID,
		Name:        "Staff " + id,
		Email:       id + "@hotel.test",
		Role:        role,
		Departments: departments,
		Active:      true,
		CreatedAt:   baseTime.Add(time.Duration(order) * time.Minute),
	}
	h.store.PutStaff(member)
	return member
}

func (h *harness) emailEnabled() {
	h.store.PutNotificationSettings(domain.HotelNotificationSettings{HotelID: hotelID, EmailProvider: "smtp"})
}

func (h *harness) ticket(id, department string, status domain.TicketStatus, assignee *string) domain.Ticket {
	stay := "stay-1"
	ticket := domain.Ticket{
		ID:                  id,
		HotelID:             hotelID,
		StayID:              &stay,
		RoomNumber:          "204",
		Department:          department,
		Status:              status,
		Title:               "Extra towels",
		AssignedStaffUserID: assignee,
		Version:             1,
		CreatedAt:           baseTime,
		UpdatedAt:           baseTime,
	}
	h.store.PutTicket(ticket)
	return ticket
}

func (h *harness) thread(id, department string, status domain.ThreadStatus, assignee *string) domain.Thread {
	thread := domain.Thread{
		ID:                  id,
		HotelID:             hotelID,
		StayID:              "stay-1",
		Department:          department,
		Status:              status,
		Title:               "Question",
		AssignedStaffUserID: assignee,
		Version:             1,
		CreatedAt:           baseTime,
		UpdatedAt:           baseTime,
	}
	h.store.PutThread(thread)
	return thread
}

func staffPrincipal(id string, role domain.StaffRole, departments ...string) domain.Principal {
	p := domain.StaffPrincipal(id, hotelID, role, departments...)
	p.Name = "Staff " + id
	return p
}

func guest() domain.Principal {
	return domain.GuestPrincipal("guest-1", hotelID, "stay-1")
}

func str(s string) *string { return &s }

func ticketStatus(s domain.TicketStatus) *domain.TicketStatus { return &s }

func threadStatus(s domain.ThreadStatus) *domain.ThreadStatus { return &s }

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

// drain returns every event already buffered on sub.
func drain(sub *events.Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

type failingOutbox struct{}

func (failingOutbox) Create(context.Context, *domain.NotificationOutboxEntry) error {
	return errors.New("outbox unavailable")
}
