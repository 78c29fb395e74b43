// Package memory is an in-process implementation of the repository
// interfaces. It backs tests and local runs without POSTGRES_DSN.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/repository"
)

// Store keeps every aggregate behind a single mutex, which makes each
// Update trivially atomic per record.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      int64
	tickets  map[string]domain.Ticket
	threads  map[string]domain.Thread
	messages map[string][]domain.Message
	notes    []domain.Note
	staff    map[string]domain.StaffMember
	settings map[string]domain.HotelNotificationSettings
	outbox   []domain.NotificationOutboxEntry
	events   map[string]domain.CalendarEvent
	history  []domain.HistoryEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:      time.Now,
		tickets:  make(map[string]domain.Ticket),
		threads:  make(map[string]domain.Thread),
		messages: make(map[string][]domain.Message),
		staff:    make(map[string]domain.StaffMember),
		settings: make(map[string]domain.HotelNotificationSettings),
		events:   make(map[string]domain.CalendarEvent),
	}
}

func (s *Store) Tickets() repository.TicketRepository               { return ticketStore{s} }
func (s *Store) Threads() repository.ThreadRepository               { return threadStore{s} }
func (s *Store) Messages() repository.MessageRepository             { return messageStore{s} }
func (s *Store) Notes() repository.NoteRepository                   { return noteStore{s} }
func (s *Store) Staff() repository.StaffRepository                  { return staffStore{s} }
func (s *Store) Hotels() repository.HotelRepository                 { return hotelStore{s} }
func (s *Store) Outbox() repository.OutboxRepository                { return outboxStore{s} }
func (s *Store) CalendarEvents() repository.CalendarEventRepository { return calendarStore{s} }
func (s *Store) History() repository.HistoryRepository              { return historyStore{s} }

// PutStaff seeds a staff member. CreatedAt defaults to now.
func (s *Store) PutStaff(member domain.StaffMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = s.now()
	}
	if member.UpdatedAt.IsZero() {
		member.UpdatedAt = member.CreatedAt
	}
	s.staff[member.ID] = member
}

// PutNotificationSettings seeds a hotel's channel providers.
func (s *Store) PutNotificationSettings(settings domain.HotelNotificationSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.HotelID] = settings
}

// PutCalendarEvent seeds an itinerary entry.
func (s *Store) PutCalendarEvent(event domain.CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
		event.UpdatedAt = event.CreatedAt
	}
	s.events[event.ID] = event
}

// PutTicket stores a ticket verbatim, bypassing Create defaults.
func (s *Store) PutTicket(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = ticket.Clone()
}

// PutThread stores a thread verbatim, bypassing Create defaults.
func (s *Store) PutThread(thread domain.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[thread.ID] = thread.Clone()
}

// OutboxEntries returns a copy of every outbox entry in insertion order.
func (s *Store) OutboxEntries() []domain.NotificationOutboxEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.NotificationOutboxEntry(nil), s.outbox...)
}

// ThreadMessages returns a copy of a thread's messages in order.
func (s *Store) ThreadMessages(threadID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages[threadID]...)
}

// AllNotes returns a copy of all stored notes.
func (s *Store) AllNotes() []domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Note(nil), s.notes...)
}

type ticketStore struct{ s *Store }

func (t ticketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	now := t.s.now()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	t.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (t ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ticket, ok := t.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := ticket.Clone()
	return &out, nil
}

func (t ticketStore) Update(_ context.Context, id string, mutate repository.TicketMutation) (*domain.Ticket, *domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	current, ok := t.s.tickets[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	prev := current.Clone()
	candidate := current.Clone()
	if err := mutate(&candidate); err != nil {
		return nil, nil, err
	}
	candidate.ID = current.ID
	candidate.HotelID = current.HotelID
	candidate.CreatedAt = current.CreatedAt
	candidate.Version = current.Version + 1
	candidate.UpdatedAt = t.s.now()
	t.s.tickets[id] = candidate.Clone()
	return &prev, &candidate, nil
}

type threadStore struct{ s *Store }

func (t threadStore) Create(_ context.Context, thread *domain.Thread) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	now := t.s.now()
	thread.ID = uuid.NewString()
	thread.Version = 1
	thread.CreatedAt = now
	thread.UpdatedAt = now
	t.s.threads[thread.ID] = thread.Clone()
	return nil
}

func (t threadStore) GetByID(_ context.Context, id string) (*domain.Thread, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	thread, ok := t.s.threads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := thread.Clone()
	return &out, nil
}

func (t threadStore) FindOpenForStay(_ context.Context, hotelID, stayID, department string) (*domain.Thread, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var best *domain.Thread
	for _, thread := range t.s.threads {
		if thread.HotelID != hotelID || thread.StayID != stayID || thread.Department != department || thread.Archived() {
			continue
		}
		if best == nil || thread.CreatedAt.After(best.CreatedAt) {
			candidate := thread.Clone()
			best = &candidate
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (t threadStore) Update(_ context.Context, id string, mutate repository.ThreadMutation) (*domain.Thread, *domain.Thread, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	current, ok := t.s.threads[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	prev := current.Clone()
	candidate := current.Clone()
	if err := mutate(&candidate); err != nil {
		return nil, nil, err
	}
	candidate.ID = current.ID
	candidate.HotelID = current.HotelID
	candidate.StayID = current.StayID
	candidate.CreatedAt = current.CreatedAt
	candidate.Version = current.Version + 1
	candidate.UpdatedAt = t.s.now()
	t.s.threads[id] = candidate.Clone()
	return &prev, &candidate, nil
}

type messageStore struct{ s *Store }

func (m messageStore) Append(_ context.Context, msg *domain.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	thread, ok := m.s.threads[msg.ThreadID]
	if !ok || thread.Archived() {
		return repository.ErrThreadClosed
	}
	m.s.seq++
	msg.ID = uuid.NewString()
	msg.Seq = m.s.seq
	msg.CreatedAt = m.s.now()
	m.s.messages[msg.ThreadID] = append(m.s.messages[msg.ThreadID], *msg)
	return nil
}

func (m messageStore) ListByThread(_ context.Context, threadID string, limit int) ([]domain.Message, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	msgs := append([]domain.Message(nil), m.s.messages[threadID]...)
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].Seq < msgs[j].Seq
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

type noteStore struct{ s *Store }

func (n noteStore) Create(_ context.Context, note *domain.Note) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	note.ID = uuid.NewString()
	note.CreatedAt = n.s.now()
	n.s.notes = append(n.s.notes, *note)
	return nil
}

type staffStore struct{ s *Store }

func (st staffStore) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	member, ok := st.s.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &member, nil
}

func (st staffStore) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var result []domain.StaffMember
	for _, member := range st.s.staff {
		if filter.HotelID != "" && member.HotelID != filter.HotelID {
			continue
		}
		if filter.Role != nil && member.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && member.Active != *filter.Active {
			continue
		}
		if len(filter.Departments) > 0 && !inAnyDepartment(member, filter.Departments) {
			continue
		}
		result = append(result, member)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func inAnyDepartment(member domain.StaffMember, departments []string) bool {
	for _, dept := range departments {
		if member.InDepartment(dept) {
			return true
		}
	}
	return false
}

type hotelStore struct{ s *Store }

func (h hotelStore) GetNotificationSettings(_ context.Context, hotelID string) (*domain.HotelNotificationSettings, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	settings, ok := h.s.settings[hotelID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &settings, nil
}

type outboxStore struct{ s *Store }

func (o outboxStore) Create(_ context.Context, entry *domain.NotificationOutboxEntry) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	now := o.s.now()
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	o.s.outbox = append(o.s.outbox, *entry)
	return nil
}

type calendarStore struct{ s *Store }

func (c calendarStore) GetByID(_ context.Context, id string) (*domain.CalendarEvent, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	event, ok := c.s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &event, nil
}

func (c calendarStore) UpdateStatus(_ context.Context, id string, status domain.CalendarEventStatus) (*domain.CalendarEvent, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	event, ok := c.s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	event.Status = status
	event.UpdatedAt = c.s.now()
	c.s.events[id] = event
	return &event, nil
}

type historyStore struct{ s *Store }

func (h historyStore) Create(_ context.Context, entry *domain.HistoryEntry) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = h.s.now()
	h.s.history = append(h.s.history, *entry)
	return nil
}

func (h historyStore) ListByEntity(_ context.Context, entityType, entityID string) ([]domain.HistoryEntry, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	var result []domain.HistoryEntry
	for _, entry := range h.s.history {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			result = append(result, entry)
		}
	}
	return result, nil
}
