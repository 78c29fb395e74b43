package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/events"
	"github.com/spec-kit/guest-services/internal/observability"
	"github.com/spec-kit/guest-services/internal/repository"
	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

// ChangeRecord describes one committed ticket or thread transition. Exactly
// one of Ticket and Thread is set and holds the committed snapshot.
type ChangeRecord struct {
	Type         events.EventType
	Actor        domain.Principal
	HotelID      string
	Department   string
	Title        string
	PrevStatus   string
	NextStatus   string
	PrevAssignee *string
	NextAssignee *string
	Ticket       *domain.Ticket
	Thread       *domain.Thread
	CommittedAt  time.Time
}

func ticketChange(eventType events.EventType, actor domain.Principal, prev, next *domain.Ticket) ChangeRecord {
	change := ChangeRecord{
		Type:         eventType,
		Actor:        actor,
		HotelID:      next.HotelID,
		Department:   next.Department,
		Title:        next.Title,
		NextStatus:   string(next.Status),
		NextAssignee: next.AssignedStaffUserID,
		Ticket:       next,
		CommittedAt:  next.UpdatedAt,
	}
	if prev != nil {
		change.PrevStatus = string(prev.Status)
		change.PrevAssignee = prev.AssignedStaffUserID
	}
	return change
}

func threadChange(eventType events.EventType, actor domain.Principal, prev, next *domain.Thread) ChangeRecord {
	change := ChangeRecord{
		Type:         eventType,
		Actor:        actor,
		HotelID:      next.HotelID,
		Department:   next.Department,
		Title:        next.Title,
		NextStatus:   string(next.Status),
		NextAssignee: next.AssignedStaffUserID,
		Thread:       next,
		CommittedAt:  next.UpdatedAt,
	}
	if prev != nil {
		change.PrevStatus = string(prev.Status)
		change.PrevAssignee = prev.AssignedStaffUserID
	}
	return change
}

// EntityID returns the ticket or thread id.
func (c ChangeRecord) EntityID() string {
	if c.Ticket != nil {
		return c.Ticket.ID
	}
	if c.Thread != nil {
		return c.Thread.ID
	}
	return ""
}

// Entity names the changed aggregate ("ticket" or "thread").
func (c ChangeRecord) Entity() string {
	if c.Ticket != nil {
		return "ticket"
	}
	return "thread"
}

func (c ChangeRecord) StatusChanged() bool { return c.PrevStatus != c.NextStatus }

func (c ChangeRecord) AssignmentChanged() bool {
	return !domain.SameString(c.PrevAssignee, c.NextAssignee)
}

// Event builds the realtime envelope for the change.
func (c ChangeRecord) Event() events.Event {
	if c.Ticket != nil {
		return events.TicketEvent(c.Type, c.Ticket)
	}
	return events.ThreadEvent(c.Type, c.Thread)
}

// ChangeNotifier receives committed changes for notification fan-out.
// Implementations must not fail the caller.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, change ChangeRecord)
}

// Workflow carries what ticket and thread services share: the realtime
// publisher, the notifier and the post-transition hooks.
type Workflow struct {
	broker   events.Publisher
	notifier ChangeNotifier
	hooks    *HookRegistry
	history  repository.HistoryRepository
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// WorkflowDependencies bundles collaborators. Every field is optional.
type WorkflowDependencies struct {
	Broker   events.Publisher
	Notifier ChangeNotifier
	Hooks    *HookRegistry
	History  repository.HistoryRepository
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// NewWorkflow constructs the shared workflow stage.
func NewWorkflow(deps WorkflowDependencies) *Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hooks := deps.Hooks
	if hooks == nil {
		hooks = NewHookRegistry()
	}
	return &Workflow{
		broker:   deps.Broker,
		notifier: deps.Notifier,
		hooks:    hooks,
		history:  deps.History,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// Hooks exposes the registry so callers can register post-transition hooks.
func (w *Workflow) Hooks() *HookRegistry { return w.hooks }

// publish pushes event to the realtime broker. Broker failures never reach the caller.
func (w *Workflow) publish(ctx context.Context, event events.Event) {
	if w.broker == nil {
		return
	}
	if err := w.broker.Publish(ctx, event); err != nil {
		w.metrics.SideEffectFailed("realtime")
		w.logger.Warn("realtime publish failed",
			zap.String("type", string(event.Type)),
			zap.String("hotel_id", event.HotelID),
			zap.Error(err))
	}
}

// commit publishes the change and then runs the best-effort stage.
func (w *Workflow) commit(ctx context.Context, change ChangeRecord) {
	w.metrics.Mutation(change.Entity(), "ok")
	w.publish(ctx, change.Event())
	w.runSideEffects(ctx, change)
}

// runSideEffects is the best-effort stage after a committed change. It
// records history, notifies recipients and runs matching hooks. Every
// failure is logged and swallowed so the primary mutation always succeeds.
func (w *Workflow) runSideEffects(ctx context.Context, change ChangeRecord) {
	fields := []zap.Field{
		zap.String("hotel_id", change.HotelID),
		zap.String(change.Entity()+"_id", change.EntityID()),
		zap.String("type", string(change.Type)),
	}

	if w.history != nil {
		for _, entry := range historyEntries(change) {
			if err := w.history.Create(ctx, &entry); err != nil {
				w.metrics.SideEffectFailed("history")
				w.logger.Warn("history entry not stored", append(fields, zap.Error(err))...)
				break
			}
		}
	}

	if w.notifier != nil && (change.StatusChanged() || change.AssignmentChanged()) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.metrics.SideEffectFailed("notification")
					w.logger.Error("notification dispatch panicked", append(fields, zap.Any("panic", r))...)
				}
			}()
			w.notifier.NotifyChange(ctx, change)
		}()
	}

	if change.Ticket == nil {
		return
	}
	for _, hook := range w.hooks.Match(change.Department, change.Ticket.PayloadType()) {
		if !hook.Applies(change) {
			continue
		}
		if err := runHook(ctx, hook, change); err != nil {
			w.metrics.SideEffectFailed("hook")
			w.logger.Warn("post-transition hook failed", append(fields, zap.String("hook", hook.Name()), zap.Error(err))...)
			continue
		}
		w.logger.Info("post-transition hook ran", append(fields, zap.String("hook", hook.Name()))...)
	}
}

func runHook(ctx context.Context, hook TransitionHook, change ChangeRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("hook panicked")
		}
	}()
	return hook.Run(ctx, change)
}

// mapStoreError converts repository sentinels into caller-facing errors.
func mapStoreError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict("record was modified concurrently, retry", map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

// recordOutcome counts a failed mutation by its error code.
func (w *Workflow) recordOutcome(entity string, err error) {
	if err == nil {
		return
	}
	w.metrics.Mutation(entity, apperrors.ToDomainError(err).Code)
}
