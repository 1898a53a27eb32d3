package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-trade-journal/internal/event"
	"go-trade-journal/internal/model"
	"go-trade-journal/pkg/ringbuf"
)

const cleanupLogCapacity = 50

// CleanupScheduler sweeps expired trash on a fixed interval plus once per
// local midnight. One service owns exactly one scheduler; Configure tears the
// running timers down and rebuilds them under the same lock, so no stale
// timer from an earlier configuration can ever fire alongside a new one.
type CleanupScheduler struct {
	mu       sync.Mutex
	trash    *TrashService
	notifier NotificationSink
	bus      event.Bus
	logger   *slog.Logger

	cfg     model.CleanupConfig
	running bool
	stopCh  chan struct{}
	ticker  *time.Ticker
	log     *ringbuf.Ring[model.CleanupResult]

	// lastExpiringNotice is the local calendar date (2006-01-02) on which an
	// expiring-soon notification last went out. At most one per day.
	lastExpiringNotice string

	now func() time.Time
}

func NewCleanupScheduler(trash *TrashService, notifier NotificationSink, bus event.Bus, logger *slog.Logger, cfg model.CleanupConfig) *CleanupScheduler {
	if cfg.IntervalHours <= 0 {
		cfg.IntervalHours = model.DefaultCleanupConfig().IntervalHours
	}
	if cfg.MaxRetentionDays <= 0 {
		cfg.MaxRetentionDays = model.DefaultCleanupConfig().MaxRetentionDays
	}

	return &CleanupScheduler{
		trash:    trash,
		notifier: notifier,
		bus:      bus,
		logger:   logger,
		cfg:      cfg,
		log:      ringbuf.New[model.CleanupResult](cleanupLogCapacity),
		now:      time.Now,
	}
}

// Start arms the interval and midnight timers and runs an immediate sweep.
// Calling Start on a running scheduler is a no-op.
func (c *CleanupScheduler) Start() {
	c.mu.Lock()
	if c.running || !c.cfg.Enabled {
		c.mu.Unlock()
		return
	}
	c.startLocked()
	c.mu.Unlock()

	c.Sweep(context.Background())
}

// Stop cancels both timers. Idempotent.
func (c *CleanupScheduler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Configure atomically applies a new configuration: the old timers are fully
// cancelled before any new timer is installed, then the scheduler restarts
// when the new configuration enables it. The retention window applies to
// future deletions only.
func (c *CleanupScheduler) Configure(cfg model.CleanupConfig) error {
	if cfg.IntervalHours <= 0 {
		return fmt.Errorf("%w: interval hours must be positive", model.ErrInvalidInput)
	}
	if cfg.MaxRetentionDays <= 0 {
		return fmt.Errorf("%w: retention days must be positive", model.ErrInvalidInput)
	}

	c.mu.Lock()
	wasRunning := c.running
	c.stopLocked()
	c.cfg = cfg
	c.trash.SetRetentionDays(cfg.MaxRetentionDays)

	start := cfg.Enabled
	if start {
		c.startLocked()
	}
	c.mu.Unlock()

	c.logger.Info("cleanup scheduler reconfigured",
		"enabled", cfg.Enabled,
		"interval_hours", cfg.IntervalHours,
		"retention_days", cfg.MaxRetentionDays,
		"was_running", wasRunning,
	)

	if start {
		c.Sweep(context.Background())
	}
	return nil
}

// Running reports whether the timers are armed.
func (c *CleanupScheduler) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Config returns the current configuration.
func (c *CleanupScheduler) Config() model.CleanupConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Log returns the retained sweep history, newest first.
func (c *CleanupScheduler) Log() []model.CleanupResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Snapshot()
}

// Stats combines trash-document counters with scheduler state.
func (c *CleanupScheduler) Stats(ctx context.Context) (model.CleanupStats, error) {
	items, err := c.trash.GetTrashItems(ctx, model.TrashFilters{})
	if err != nil {
		return model.CleanupStats{}, err
	}
	trashStats, err := c.trash.GetStats(ctx)
	if err != nil {
		return model.CleanupStats{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := model.CleanupStats{
		TotalAutoDeleted: sumAutoDeleted(c.log.Snapshot()),
		LastCleanup:      trashStats.LastCleanup,
		TotalCleanupLogs: c.log.Len(),
		SchedulerRunning: c.running,
	}
	for _, it := range items {
		if it.Expired(now) {
			stats.ItemsExpiredNow++
		} else if d := it.DaysUntilExpiration(now); d > 0 && d <= expiringSoonWindow {
			stats.ItemsExpiringSoon++
		}
	}
	return stats, nil
}

// Sweep runs one cleanup pass immediately, regardless of timer state.
func (c *CleanupScheduler) Sweep(ctx context.Context) {
	c.mu.Lock()
	now := c.now()
	notifyCleanup := c.cfg.NotifyCleanup
	notifyExpiring := c.cfg.NotifyExpiring
	c.mu.Unlock()

	result, expiringSoon, err := c.trash.RemoveExpired(ctx, now)
	if err != nil {
		c.logger.Error("cleanup sweep failed", "error", err)
		return
	}

	c.mu.Lock()
	c.log.PushFront(result)
	today := now.Format("2006-01-02")
	firstNoticeToday := c.lastExpiringNotice != today
	if notifyExpiring && len(expiringSoon) > 0 && firstNoticeToday {
		c.lastExpiringNotice = today
	} else {
		firstNoticeToday = false
	}
	c.mu.Unlock()

	if result.DeletedCount > 0 {
		c.bus.Publish(event.New(event.TypeTrashCleanup, result))
		if notifyCleanup && c.notifier != nil {
			c.notifier.Notify(fmt.Sprintf("Cleanup removed %d expired item(s) from trash", result.DeletedCount), "info")
		}
	}

	if firstNoticeToday {
		c.bus.Publish(event.New(event.TypeTrashExpiring, expiringSoon))
		if c.notifier != nil {
			c.notifier.Notify(fmt.Sprintf("%d trash item(s) expire within %d days", len(expiringSoon), expiringSoonWindow), "warning")
		}
	}
}

func (c *CleanupScheduler) startLocked() {
	c.stopCh = make(chan struct{})
	c.ticker = time.NewTicker(time.Duration(c.cfg.IntervalHours) * time.Hour)
	c.running = true

	go c.intervalLoop(c.stopCh, c.ticker)
	go c.midnightLoop(c.stopCh)

	c.logger.Info("cleanup scheduler started", "interval_hours", c.cfg.IntervalHours)
}

func (c *CleanupScheduler) stopLocked() {
	if !c.running {
		return
	}
	close(c.stopCh)
	c.ticker.Stop()
	c.stopCh = nil
	c.ticker = nil
	c.running = false
	c.logger.Info("cleanup scheduler stopped")
}

func (c *CleanupScheduler) intervalLoop(stop <-chan struct{}, ticker *time.Ticker) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Sweep(context.Background())
		}
	}
}

// midnightLoop fires shortly after each local midnight and re-arms itself,
// so day-boundary expirations are collected promptly even with a long
// interval configured.
func (c *CleanupScheduler) midnightLoop(stop <-chan struct{}) {
	for {
		timer := time.NewTimer(untilNextMidnight(c.now()))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			c.Sweep(context.Background())
		}
	}
}

func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 5, 0, now.Location())
	return next.Sub(now)
}

func sumAutoDeleted(results []model.CleanupResult) int {
	total := 0
	for _, r := range results {
		total += r.DeletedCount
	}
	return total
}
