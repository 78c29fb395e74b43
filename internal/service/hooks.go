package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/repository"
)

// AnyDepartment registers a hook for every department.
const AnyDepartment = "*"

// PayloadTypeRestaurantBooking tags tickets created for table reservations.
const PayloadTypeRestaurantBooking = "restaurant_booking"

// TransitionHook is a named cross-entity side effect run after a committed
// ticket transition. Failures are logged by the workflow, never surfaced.
type TransitionHook interface {
	Name() string
	Applies(change ChangeRecord) bool
	Run(ctx context.Context, change ChangeRecord) error
}

type hookKey struct {
	department  string
	payloadType string
}

// HookRegistry maps (department, payload type) to hooks.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[hookKey][]TransitionHook
}

func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[hookKey][]TransitionHook)}
}

// Register binds hook to department (or AnyDepartment) and payloadType.
func (r *HookRegistry) Register(department, payloadType string, hook TransitionHook) {
	if department != AnyDepartment {
		department = domain.NormalizeDepartment(department)
	}
	key := hookKey{department: department, payloadType: payloadType}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[key] = append(r.hooks[key], hook)
}

// Match returns department-specific hooks followed by wildcard ones.
func (r *HookRegistry) Match(department, payloadType string) []TransitionHook {
	if payloadType == "" {
		return nil
	}
	department = domain.NormalizeDepartment(department)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []TransitionHook
	matched = append(matched, r.hooks[hookKey{department: department, payloadType: payloadType}]...)
	matched = append(matched, r.hooks[hookKey{department: AnyDepartment, payloadType: payloadType}]...)
	return matched
}

// restaurantBookingPayload is the ticket payload of a table reservation.
type restaurantBookingPayload struct {
	Type           string `json:"type"`
	EventID        string `json:"eventId"`
	RestaurantName string `json:"restaurantName"`
	PartySize      int    `json:"partySize"`
	Time           string `json:"time"`
}

// RestaurantBookingHook confirms a reservation when its ticket is resolved:
// it posts one confirmation message in the stay's thread for the ticket's
// department and flips the linked calendar event to confirmed.
type RestaurantBookingHook struct {
	threads  *ThreadService
	calendar repository.CalendarEventRepository
}

func NewRestaurantBookingHook(threads *ThreadService, calendar repository.CalendarEventRepository) *RestaurantBookingHook {
	return &RestaurantBookingHook{threads: threads, calendar: calendar}
}

// RegisterDefaultHooks wires the built-in hooks into registry.
func RegisterDefaultHooks(registry *HookRegistry, threads *ThreadService, calendar repository.CalendarEventRepository) {
	registry.Register(AnyDepartment, PayloadTypeRestaurantBooking, NewRestaurantBookingHook(threads, calendar))
}

func (h *RestaurantBookingHook) Name() string { return "restaurant_booking_confirmation" }

func (h *RestaurantBookingHook) Applies(change ChangeRecord) bool {
	return change.Ticket != nil &&
		change.NextStatus == string(domain.TicketStatusResolved) &&
		change.PrevStatus != string(domain.TicketStatusResolved)
}

func (h *RestaurantBookingHook) Run(ctx context.Context, change ChangeRecord) error {
	ticket := change.Ticket
	if ticket.StayID == nil {
		return errors.New("restaurant booking ticket has no stay")
	}
	var payload restaurantBookingPayload
	if err := json.Unmarshal(ticket.Payload, &payload); err != nil {
		return fmt.Errorf("decode restaurant booking payload: %w", err)
	}

	thread, err := h.threads.ensureStayThread(ctx, change.Actor, ticket.HotelID, *ticket.StayID, ticket.Department, "Restaurant reservations")
	if err != nil {
		return fmt.Errorf("resolve guest thread: %w", err)
	}
	body := confirmationText(payload)
	if _, err := h.threads.appendStaffMessage(ctx, thread, staffDisplayName(change.Actor), body, ticket.Payload); err != nil {
		return fmt.Errorf("post confirmation: %w", err)
	}

	if payload.EventID == "" {
		return nil
	}
	event, err := h.calendar.GetByID(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("load calendar event %s: %w", payload.EventID, err)
	}
	if event.HotelID != ticket.HotelID {
		return fmt.Errorf("calendar event %s belongs to another hotel", payload.EventID)
	}
	if _, err := h.calendar.UpdateStatus(ctx, event.ID, domain.CalendarEventConfirmed); err != nil {
		return fmt.Errorf("confirm calendar event %s: %w", payload.EventID, err)
	}
	return nil
}

func confirmationText(p restaurantBookingPayload) string {
	text := "Your table reservation is confirmed"
	if p.RestaurantName != "" {
		text += " at " + p.RestaurantName
	}
	if p.Time != "" {
		text += " for " + p.Time
	}
	if p.PartySize > 0 {
		text += fmt.Sprintf(" (party of %d)", p.PartySize)
	}
	return text + "."
}

func staffDisplayName(p domain.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return "Front desk"
}
