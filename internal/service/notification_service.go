package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/observability"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// NotificationService decides recipients of workflow changes and enqueues
// outbox entries for an external sender.
type NotificationService struct {
	outbox  repository.OutboxRepository
	staff   repository.StaffRepository
	hotels  repository.HotelRepository
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NotificationDependencies bundles collaborators. Hotels is usually the
// cached repository.
type NotificationDependencies struct {
	OutboxRepo repository.OutboxRepository
	StaffRepo  repository.StaffRepository
	HotelRepo  repository.HotelRepository
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		outbox:  deps.OutboxRepo,
		staff:   deps.StaffRepo,
		hotels:  deps.HotelRepo,
		logger:  logger,
		metrics: deps.Metrics,
		now:     time.Now,
	}
}

// Enqueue inserts a pending email entry. It returns nil, nil when the
// hotel's email provider is "none" or the hotel has no settings.
func (n *NotificationService) Enqueue(ctx context.Context, hotelID, toAddress, subject, bodyText string, payload json.RawMessage) (*domain.NotificationOutboxEntry, error) {
	return n.EnqueueChannel(ctx, domain.ChannelEmail, hotelID, toAddress, subject, bodyText, payload)
}

// EnqueueChannel is Enqueue for an explicit channel.
func (n *NotificationService) EnqueueChannel(ctx context.Context, channel domain.NotificationChannel, hotelID, toAddress, subject, bodyText string, payload json.RawMessage) (*domain.NotificationOutboxEntry, error) {
	if strings.TrimSpace(toAddress) == "" {
		return nil, apperrors.NewValidationError("toAddress is required", nil)
	}
	settings, err := n.hotels.GetNotificationSettings(ctx, hotelID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		settings = &domain.HotelNotificationSettings{HotelID: hotelID}
	case err != nil:
		n.metrics.Notification(string(channel), "error")
		return nil, fmt.Errorf("notification settings: %w", err)
	}
	provider := settings.Provider(channel)
	if provider == domain.ProviderNone {
		n.metrics.Notification(string(channel), "disabled")
		return nil, nil
	}

	now := n.now().UTC()
	entry := &domain.NotificationOutboxEntry{
		HotelID:       hotelID,
		Channel:       channel,
		Provider:      provider,
		ToAddress:     toAddress,
		BodyText:      bodyText,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		Attempts:      0,
		NextAttemptAt: now,
	}
	if subject != "" {
		entry.Subject = &subject
	}
	if err := n.outbox.Create(ctx, entry); err != nil {
		n.metrics.Notification(string(channel), "error")
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}
	n.metrics.Notification(string(channel), "enqueued")
	return entry, nil
}

// Recipients returns who should hear about change: the assignee when one
// exists, otherwise the department roster. The acting staff user is
// always excluded.
func (n *NotificationService) Recipients(ctx context.Context, change ChangeRecord) ([]domain.StaffMember, error) {
	actorID := ""
	if change.Actor.IsStaff() || change.Actor.IsPlatformAdmin() {
		actorID = change.Actor.StaffUserID
	}

	if change.NextAssignee != nil {
		if *change.NextAssignee == actorID {
			return nil, nil
		}
		member, err := n.staff.GetByID(ctx, *change.NextAssignee)
		if err != nil {
			return nil, fmt.Errorf("load assignee: %w", err)
		}
		if !member.Active {
			return nil, nil
		}
		return []domain.StaffMember{*member}, nil
	}

	active := true
	members, err := n.staff.List(ctx, repository.StaffFilter{HotelID: change.HotelID, Active: &active})
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	var roster []domain.StaffMember
	for _, member := range members {
		if member.ID == actorID || !member.InDepartment(change.Department) {
			continue
		}
		roster = append(roster, member)
	}
	return roster, nil
}

// NotifyChange enqueues one entry per recipient. Every failure is logged
// and swallowed.
func (n *NotificationService) NotifyChange(ctx context.Context, change ChangeRecord) {
	fields := []zap.Field{
		zap.String("hotel_id", change.HotelID),
		zap.String(change.Entity()+"_id", change.EntityID()),
	}
	recipients, err := n.Recipients(ctx, change)
	if err != nil {
		n.metrics.SideEffectFailed("notification")
		n.logger.Warn("notification recipients unavailable", append(fields, zap.Error(err))...)
		return
	}
	if len(recipients) == 0 {
		return
	}

	subject, body := describeChange(change)
	payload, err := json.Marshal(map[string]any{
		"type":                change.Type,
		"entity":              change.Entity(),
		"id":                  change.EntityID(),
		"department":          change.Department,
		"status":              change.NextStatus,
		"assignedStaffUserId": change.NextAssignee,
	})
	if err != nil {
		n.logger.Warn("notification payload encode failed", append(fields, zap.Error(err))...)
		return
	}

	for _, member := range recipients {
		if member.Email == "" {
			continue
		}
		entry, err := n.Enqueue(ctx, change.HotelID, member.Email, subject, body, payload)
		if err != nil {
			n.metrics.SideEffectFailed("notification")
			n.logger.Warn("notification enqueue failed",
				append(fields, zap.String("staff_user_id", member.ID), zap.Error(err))...)
			continue
		}
		if entry == nil {
			// Channel disabled for this hotel; the rest would be skipped too.
			return
		}
		n.logger.Debug("notification enqueued",
			append(fields, zap.String("outbox_id", entry.ID), zap.String("staff_user_id", member.ID))...)
	}
}

func describeChange(change ChangeRecord) (string, string) {
	entity := "Ticket"
	if change.Thread != nil {
		entity = "Conversation"
	}
	var parts []string
	switch {
	case change.PrevStatus == "":
		parts = append(parts, fmt.Sprintf("New %s in %s.", strings.ToLower(entity), change.Department))
	case change.StatusChanged():
		parts = append(parts, fmt.Sprintf("Status changed from %s to %s.", change.PrevStatus, change.NextStatus))
	}
	if change.PrevStatus != "" && change.AssignmentChanged() {
		if change.NextAssignee == nil {
			parts = append(parts, "It is now unassigned.")
		} else {
			parts = append(parts, "It has been assigned to you.")
		}
	}
	return fmt.Sprintf("%s: %s", entity, change.Title), strings.Join(parts, " ")
}
