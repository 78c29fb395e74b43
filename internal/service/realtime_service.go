package service

import (
	"strings"

	"github.com/spec-kit/guest-services/internal/auth"
	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/events"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// Subscriber is the registration side of the realtime broker.
type Subscriber interface {
	Subscribe(filter events.Filter) (*events.Subscription, func())
}

// SubscribeParams are the stream parameters supplied by the client.
type SubscribeParams struct {
	HotelID     string
	StayID      *string
	TicketID    *string
	Departments []string
}

// RealtimeService turns a principal and stream parameters into a broker
// subscription the principal is allowed to hold.
type RealtimeService struct {
	broker Subscriber
}

func NewRealtimeService(broker Subscriber) *RealtimeService {
	return &RealtimeService{broker: broker}
}

// Subscribe registers a stream. The returned unsubscribe must run when the
// connection ends; it is idempotent.
func (s *RealtimeService) Subscribe(principal domain.Principal, params SubscribeParams) (*events.Subscription, func(), error) {
	filter, err := BuildFilter(principal, params)
	if err != nil {
		return nil, nil, err
	}
	sub, unsubscribe := s.broker.Subscribe(filter)
	return sub, unsubscribe, nil
}

// BuildFilter derives the broker filter. Guests are pinned to their stay
// and never see staff notes. Staff without a department list get their own
// departments; asking for a department they cannot see is forbidden.
func BuildFilter(principal domain.Principal, params SubscribeParams) (events.Filter, error) {
	hotelID := strings.TrimSpace(params.HotelID)
	if hotelID == "" {
		return events.Filter{}, apperrors.NewValidationError("hotelId is required", nil)
	}
	filter := events.Filter{
		HotelID:     hotelID,
		StayID:      nonEmpty(params.StayID),
		TicketID:    nonEmpty(params.TicketID),
		Departments: domain.NormalizeDepartments(params.Departments),
	}

	switch {
	case principal.IsGuest():
		if principal.StayID == nil || principal.HotelIDValue() != hotelID {
			return events.Filter{}, apperrors.NewForbidden("access denied")
		}
		if filter.StayID != nil && *filter.StayID != *principal.StayID {
			return events.Filter{}, apperrors.NewForbidden("access denied")
		}
		stayID := *principal.StayID
		filter.StayID = &stayID
		filter.ExcludeInternal = true
	case principal.IsStaff():
		if principal.HotelIDValue() != hotelID {
			return events.Filter{}, apperrors.NewForbidden("access denied")
		}
		if principal.IsPrivileged() {
			break
		}
		if filter.Departments == nil {
			filter.Departments = domain.NormalizeDepartments(principal.Departments)
			if filter.Departments == nil {
				filter.Departments = []string{}
			}
			break
		}
		for _, dept := range filter.Departments {
			if !auth.CanSeeDepartment(principal, dept) {
				return events.Filter{}, apperrors.NewForbidden("department not visible: " + dept)
			}
		}
	case principal.IsPlatformAdmin():
	default:
		return events.Filter{}, apperrors.NewForbidden("access denied")
	}
	return filter, nil
}

func nonEmpty(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	out := strings.TrimSpace(*v)
	return &out
}
