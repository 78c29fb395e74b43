package service

import (
	"context"

	"github.com/spec-kit/guest-services/internal/domain"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// historyEntries turns a committed change into audit rows: one for a
// creation, otherwise one per changed field.
func historyEntries(change ChangeRecord) []domain.HistoryEntry {
	base := domain.HistoryEntry{
		HotelID:    change.HotelID,
		EntityType: change.Entity(),
		EntityID:   change.EntityID(),
		ActorKind:  change.Actor.Kind,
		ActorID:    actorID(change.Actor),
	}

	if change.PrevStatus == "" {
		entry := base
		entry.ChangeType = domain.ChangeTypeCreated
		entry.NewValue = map[string]any{
			"status":              change.NextStatus,
			"department":          change.Department,
			"assignedStaffUserId": change.NextAssignee,
		}
		return []domain.HistoryEntry{entry}
	}

	var out []domain.HistoryEntry
	if change.StatusChanged() {
		entry := base
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue = map[string]any{"status": change.PrevStatus}
		entry.NewValue = map[string]any{"status": change.NextStatus}
		out = append(out, entry)
	}
	if change.AssignmentChanged() {
		entry := base
		entry.ChangeType = domain.ChangeTypeAssignee
		entry.OldValue = map[string]any{"assignedStaffUserId": change.PrevAssignee}
		entry.NewValue = map[string]any{"assignedStaffUserId": change.NextAssignee}
		out = append(out, entry)
	}
	return out
}

func actorID(principal domain.Principal) *string {
	id := principal.StaffUserID
	if principal.IsGuest() {
		id = principal.GuestID
	}
	if id == "" {
		return nil
	}
	return &id
}

// listHistory returns the audit trail of a ticket or thread. Only staff who
// may act on the record can read it.
func (w *Workflow) listHistory(ctx context.Context, principal domain.Principal, entityType, entityID string) ([]domain.HistoryEntry, error) {
	if principal.IsGuest() {
		return nil, apperrors.NewForbidden("only staff may read history")
	}
	if w.history == nil {
		return []domain.HistoryEntry{}, nil
	}
	entries, err := w.history.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListTicketHistory returns the audit trail of a ticket.
func (s *TicketService) ListTicketHistory(ctx context.Context, principal domain.Principal, ticketID string) ([]domain.HistoryEntry, error) {
	if _, err := s.GetTicket(ctx, principal, ticketID); err != nil {
		return nil, err
	}
	return s.workflow.listHistory(ctx, principal, "ticket", ticketID)
}

// ListThreadHistory returns the audit trail of a thread.
func (s *ThreadService) ListThreadHistory(ctx context.Context, principal domain.Principal, threadID string) ([]domain.HistoryEntry, error) {
	if _, err := s.GetThread(ctx, principal, threadID); err != nil {
		return nil, err
	}
	return s.workflow.listHistory(ctx, principal, "thread", threadID)
}
