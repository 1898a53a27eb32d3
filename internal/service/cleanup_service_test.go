package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-trade-journal/internal/event"
	"go-trade-journal/internal/model"
	"go-trade-journal/internal/repository"
)

func newTestScheduler(t *testing.T, cfg model.CleanupConfig) (*CleanupScheduler, *TrashService, *recordingSink) {
	t.Helper()
	store := repository.NewMemoryDocumentStore()
	bus := event.NewBus()
	trash := NewTrashService(context.Background(), store, nil, bus, testLogger(), cfg.MaxRetentionDays)
	sink := &recordingSink{}
	return NewCleanupScheduler(trash, sink, bus, testLogger(), cfg), trash, sink
}

func TestSweepRemovesExpiredAndLogs(t *testing.T) {
	sched, trash, sink := newTestScheduler(t, model.DefaultCleanupConfig())

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := base
	trash.now = fixedClock(&now)

	_, err := trash.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	schedNow := base.AddDate(0, 0, 31)
	sched.now = fixedClock(&schedNow)
	sched.Sweep(context.Background())

	items, err := trash.GetTrashItems(context.Background(), model.TrashFilters{})
	require.NoError(t, err)
	assert.Empty(t, items)

	log := sched.Log()
	require.Len(t, log, 1)
	assert.Equal(t, 1, log[0].DeletedCount)

	notices := sink.all()
	require.Len(t, notices, 1)
	assert.Equal(t, "info", notices[0].severity)
}

func TestExpiringNoticeAtMostOncePerDay(t *testing.T) {
	sched, trash, sink := newTestScheduler(t, model.DefaultCleanupConfig())

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := base
	trash.now = fixedClock(&now)

	_, err := trash.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	// Day 27: three days left on the retention window.
	schedNow := base.AddDate(0, 0, 27)
	sched.now = fixedClock(&schedNow)

	sched.Sweep(context.Background())
	sched.Sweep(context.Background())
	assert.Len(t, sink.all(), 1, "repeat sweeps on the same day must not re-notify")

	schedNow = schedNow.AddDate(0, 0, 1)
	sched.Sweep(context.Background())
	assert.Len(t, sink.all(), 2)
}

func TestSweepHonorsNotificationToggles(t *testing.T) {
	cfg := model.DefaultCleanupConfig()
	cfg.NotifyCleanup = false
	cfg.NotifyExpiring = false
	sched, trash, sink := newTestScheduler(t, cfg)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := base
	trash.now = fixedClock(&now)

	_, err := trash.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	now = base.AddDate(0, 0, 15)
	_, err = trash.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	schedNow := base.AddDate(0, 0, 40)
	sched.now = fixedClock(&schedNow)
	sched.Sweep(context.Background())

	assert.Empty(t, sink.all())
	log := sched.Log()
	require.Len(t, log, 1)
	assert.Equal(t, 1, log[0].DeletedCount)
	assert.Equal(t, 1, log[0].ExpiringSoonCount)
}

func TestStartStopAndConfigure(t *testing.T) {
	sched, _, _ := newTestScheduler(t, model.DefaultCleanupConfig())

	sched.Start()
	assert.True(t, sched.Running())
	sched.Start() // second start is a no-op
	assert.True(t, sched.Running())

	sched.Stop()
	assert.False(t, sched.Running())
	sched.Stop() // idempotent

	cfg := sched.Config()
	cfg.Enabled = false
	require.NoError(t, sched.Configure(cfg))
	sched.Start()
	assert.False(t, sched.Running(), "disabled scheduler must not start")

	cfg.Enabled = true
	cfg.IntervalHours = 12
	require.NoError(t, sched.Configure(cfg))
	assert.True(t, sched.Running())
	assert.Equal(t, 12, sched.Config().IntervalHours)
	sched.Stop()
}

func TestConfigureRejectsInvalidValues(t *testing.T) {
	sched, _, _ := newTestScheduler(t, model.DefaultCleanupConfig())

	cfg := sched.Config()
	cfg.IntervalHours = 0
	assert.ErrorIs(t, sched.Configure(cfg), model.ErrInvalidInput)

	cfg = sched.Config()
	cfg.MaxRetentionDays = -1
	assert.ErrorIs(t, sched.Configure(cfg), model.ErrInvalidInput)
}

func TestConfigureChangesRetentionForFutureDeletionsOnly(t *testing.T) {
	sched, trash, _ := newTestScheduler(t, model.DefaultCleanupConfig())

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := base
	trash.now = fixedClock(&now)

	before, err := trash.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	cfg := sched.Config()
	cfg.Enabled = false
	cfg.MaxRetentionDays = 7
	require.NoError(t, sched.Configure(cfg))

	after, err := trash.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	itemBefore, err := trash.GetItem(context.Background(), before)
	require.NoError(t, err)
	itemAfter, err := trash.GetItem(context.Background(), after)
	require.NoError(t, err)

	assert.Equal(t, base.AddDate(0, 0, 30), itemBefore.ExpirationDate)
	assert.Equal(t, base.AddDate(0, 0, 7), itemAfter.ExpirationDate)
}

func TestStatsReflectSchedulerAndTrashState(t *testing.T) {
	sched, trash, _ := newTestScheduler(t, model.DefaultCleanupConfig())

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := base
	trash.now = fixedClock(&now)

	_, err := trash.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	statsNow := base.AddDate(0, 0, 26)
	sched.now = fixedClock(&statsNow)

	stats, err := sched.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ItemsExpiringSoon)
	assert.Zero(t, stats.ItemsExpiredNow)
	assert.False(t, stats.SchedulerRunning)

	statsNow = base.AddDate(0, 0, 31)
	stats, err = sched.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ItemsExpiredNow)
	assert.Zero(t, stats.ItemsExpiringSoon)
}

func TestUntilNextMidnightCrossesDayBoundary(t *testing.T) {
	now := time.Date(2026, 2, 1, 23, 30, 0, 0, time.UTC)
	d := untilNextMidnight(now)
	assert.Equal(t, 30*time.Minute+5*time.Second, d)

	next := now.Add(d)
	assert.Equal(t, 2, next.Day())
	assert.Zero(t, next.Hour())
}
