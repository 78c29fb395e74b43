package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/guest-services/internal/api/http"
	"github.com/spec-kit/guest-services/internal/api/http/handlers"
	"github.com/spec-kit/guest-services/internal/auth"
	"github.com/spec-kit/guest-services/internal/config"
	"github.com/spec-kit/guest-services/internal/events"
	"github.com/spec-kit/guest-services/internal/observability"
	"github.com/spec-kit/guest-services/internal/persistence"
	"github.com/spec-kit/guest-services/internal/repository"
	"github.com/spec-kit/guest-services/internal/repository/memory"
	"github.com/spec-kit/guest-services/internal/service"
	"github.com/spec-kit/guest-services/internal/worker"
)

// repositories is the set of stores the services run on.
type repositories struct {
	tickets  repository.TicketRepository
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	notes    repository.NoteRepository
	staff    repository.StaffRepository
	hotels   repository.HotelRepository
	outbox   repository.OutboxRepository
	calendar repository.CalendarEventRepository
	history  repository.HistoryRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics("guest_services", registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg, logger)
	hotels := repository.NewCachedHotelRepository(repos.hotels, redis.Client, cfg.Notification.SettingsCacheTTL(), logger)

	broker := events.NewBroker(events.BrokerConfig{
		Shards:       cfg.Realtime.Shards,
		BufferSize:   cfg.Realtime.BufferSize,
		WatermarkTTL: cfg.Realtime.WatermarkTTL(),
	}, logger, metrics)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		OutboxRepo: repos.outbox,
		StaffRepo:  repos.staff,
		HotelRepo:  hotels,
		Logger:     logger,
		Metrics:    metrics,
	})
	var notifier service.ChangeNotifier = notifications
	var notifyWorker *worker.NotificationWorker
	if cfg.Notification.Async {
		notifyWorker = worker.NewNotificationWorker(notifications, worker.NotificationWorkerConfig{
			Workers:   cfg.Notification.Workers,
			QueueSize: cfg.Notification.QueueSize,
			Timeout:   cfg.Notification.Timeout(),
		}, logger, metrics)
		notifyWorker.Start()
		notifier = notifyWorker
	}

	workflow := service.NewWorkflow(service.WorkflowDependencies{
		Broker:   broker,
		Notifier: notifier,
		History:  repos.history,
		Logger:   logger,
		Metrics:  metrics,
	})
	assignments := service.NewAssignmentService(repos.staff)
	threadService := service.NewThreadService(service.ThreadDependencies{
		ThreadRepo:  repos.threads,
		MessageRepo: repos.messages,
		NoteRepo:    repos.notes,
		Assignments: assignments,
		Workflow:    workflow,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		NoteRepo:    repos.notes,
		Assignments: assignments,
		Workflow:    workflow,
		Logger:      logger,
	})
	service.RegisterDefaultHooks(workflow.Hooks(), threadService, repos.calendar)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.staff)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{}
	if redis.Enabled() {
		deps["redis"] = redis
	}
	if pg.PoolHandle() != nil {
		deps["postgres"] = pg
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, broker.SubscriberCount),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Threads:        handlers.NewThreadsHandler(threadService),
		Staff:          handlers.NewStaffHandler(service.NewStaffService(repos.staff)),
		Realtime:       handlers.NewRealtimeHandler(service.NewRealtimeService(broker), cfg.Realtime.Heartbeat(), logger),
		AuthMiddleware: authMiddleware,
		Gatherer:       registry,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Closing the broker first ends every open stream so Shutdown does not
	// wait on them.
	broker.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if notifyWorker != nil {
		stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := notifyWorker.Stop(stopCtx); err != nil {
			logger.Warn("notification worker did not drain", zap.Error(err))
		}
	}
}

// buildRepositories returns postgres repositories when a pool is configured
// and the in-memory store otherwise.
func buildRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	pool := pg.PoolHandle()
	if pool == nil {
		logger.Warn("running on the in-memory store; data is lost on restart")
		store := memory.New()
		return repositories{
			tickets:  store.Tickets(),
			threads:  store.Threads(),
			messages: store.Messages(),
			notes:    store.Notes(),
			staff:    store.Staff(),
			hotels:   store.Hotels(),
			outbox:   store.Outbox(),
			calendar: store.CalendarEvents(),
			history:  store.History(),
		}
	}
	return repositories{
		tickets:  repository.NewTicketRepository(pool),
		threads:  repository.NewThreadRepository(pool),
		messages: repository.NewMessageRepository(pool),
		notes:    repository.NewNoteRepository(pool),
		staff:    repository.NewStaffRepository(pool),
		hotels:   repository.NewHotelRepository(pool),
		outbox:   repository.NewOutboxRepository(pool),
		calendar: repository.NewCalendarEventRepository(pool),
		history:  repository.NewHistoryRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
