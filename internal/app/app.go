package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-trade-journal/internal/config"
	"go-trade-journal/internal/database"
	"go-trade-journal/internal/event"
	"go-trade-journal/internal/handler"
	"go-trade-journal/internal/middleware"
	"go-trade-journal/internal/repository"
	"go-trade-journal/internal/router"
	"go-trade-journal/internal/service"
	"go-trade-journal/internal/websocket"
)

type App struct {
	server    *http.Server
	db        *database.DB
	trash     *service.TrashService
	ledger    *service.BackupLedger
	scheduler *service.CleanupScheduler
	active    service.ActiveSessionStore
	archived  service.ArchivedSessionRepository

	snapshotInterval time.Duration
	backgroundCancel context.CancelFunc
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.Default()

	// An unreachable database degrades the trash engine instead of killing
	// the host: the store comes up unavailable and every trash call answers
	// with a storage error while the rest of the journal keeps working.
	var db *database.DB
	var docStore service.DocumentStore
	var archived service.ArchivedSessionRepository

	slog.Info("connecting to PostgreSQL")
	db, err = database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		slog.Warn("database unreachable; running degraded", "error", err)
		db = nil
		downStore := repository.NewMemoryDocumentStore()
		downStore.SetAvailable(false)
		docStore = downStore
		archived = repository.NewMemorySessionRepository()
	} else {
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		docStore = repository.NewDocumentRepository(db.Pool)
		archived = repository.NewSessionRepository(db.Pool)
		slog.Info("database ready")
	}

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	notifier := event.NewNotifier(bus)

	active := service.NewActiveSessionState()
	collections := service.NewMemoryCollectionStore()

	ledger := service.NewBackupLedger(docStore, logger)
	trashService := service.NewTrashService(context.Background(), docStore, ledger, bus, logger, cfg.TrashRetentionDays)
	scheduler := service.NewCleanupScheduler(trashService, notifier, bus, logger, cfg.CleanupConfig())
	reconciler := service.NewRestoreReconciler(trashService, active, archived, collections, notifier, notifier, nil, bus, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.APITokenSecret)
	if cfg.APITokenSecret == "" {
		slog.Warn("API_TOKEN_SECRET is empty; API authentication disabled")
	}

	trashHandler := handler.NewTrashHandler(trashService, reconciler, scheduler, ledger)
	sessionHandler := handler.NewSessionHandler(active, archived)
	healthHandler := handler.NewHealthHandler(db, trashService)

	appRouter := router.New(cfg, authMiddleware, trashHandler, sessionHandler, healthHandler, hub)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	go hub.Run(backgroundCtx)

	if db != nil {
		listener := database.NewListener(cfg.DatabaseURL, database.ChannelTrashChanged, func(origin string) {
			ctx, cancel := context.WithTimeout(backgroundCtx, 10*time.Second)
			defer cancel()
			trashService.HandleExternalChange(ctx, origin)
		})
		go listener.Run(backgroundCtx)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server:           server,
		db:               db,
		trash:            trashService,
		ledger:           ledger,
		scheduler:        scheduler,
		active:           active,
		archived:         archived,
		snapshotInterval: cfg.EmergencySnapshotInterval,
		backgroundCancel: backgroundCancel,
	}, nil
}

func (a *App) Run() error {
	a.scheduler.Start()
	go a.periodicSnapshots()

	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.scheduler.Stop()
	a.captureEmergencySnapshot(ctx, "shutdown")
	a.backgroundCancel()

	err := a.server.Shutdown(ctx)

	if a.db != nil {
		a.db.Close()
	}
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) periodicSnapshots() {
	if a.snapshotInterval <= 0 {
		return
	}

	ticker := time.NewTicker(a.snapshotInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		a.captureEmergencySnapshot(ctx, "periodic")
		cancel()
	}
}

func (a *App) captureEmergencySnapshot(ctx context.Context, trigger string) {
	if a.trash.Disabled() {
		return
	}

	state := map[string]any{
		"captured_at":    time.Now().UTC(),
		"active_session": a.active.Get(),
	}
	if stats, err := a.trash.GetStats(ctx); err == nil {
		state["trash_stats"] = stats
	}
	if sessions, err := a.archived.List(ctx); err == nil {
		ids := make([]string, 0, len(sessions))
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
		state["archived_session_ids"] = ids
	}

	body, err := json.Marshal(state)
	if err != nil {
		slog.Error("failed to encode emergency snapshot", "error", err)
		return
	}
	if err := a.ledger.CreateEmergencySnapshot(ctx, trigger, body); err != nil {
		slog.Warn("failed to store emergency snapshot", "trigger", trigger, "error", err)
	}
}
