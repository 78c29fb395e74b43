package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/observability"
	"github.com/spec-kit/guest-services/internal/service"
)

// NotificationWorker moves notification fan-out off the request path. It
// implements service.ChangeNotifier; changes that do not fit in the queue
// are dropped and logged.
type NotificationWorker struct {
	notifier service.ChangeNotifier
	queue    chan service.ChangeRecord
	workers  int
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NotificationWorkerConfig sizes the pool.
type NotificationWorkerConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// NewNotificationWorker builds a stopped worker pool around notifier.
func NewNotificationWorker(notifier service.ChangeNotifier, cfg NotificationWorkerConfig, logger *zap.Logger, metrics *observability.Metrics) *NotificationWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		notifier: notifier,
		queue:    make(chan service.ChangeRecord, cfg.QueueSize),
		workers:  cfg.Workers,
		timeout:  cfg.Timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start launches the pool.
func (w *NotificationWorker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	w.logger.Info("notification worker started", zap.Int("workers", w.workers))
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for change := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		w.notifier.NotifyChange(ctx, change)
		cancel()
	}
}

// NotifyChange queues change without blocking the caller.
func (w *NotificationWorker) NotifyChange(_ context.Context, change service.ChangeRecord) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.queue <- change:
	default:
		w.metrics.SideEffectFailed("notification_queue")
		w.logger.Warn("notification queue full; change dropped",
			zap.String("hotel_id", change.HotelID),
			zap.String(change.Entity()+"_id", change.EntityID()))
	}
}

// Stop drains queued changes and waits for the pool to exit or ctx to end.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("notification worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
