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

func newTestTrashService(t *testing.T) (*TrashService, *repository.MemoryDocumentStore, *event.InMemoryBus) {
	t.Helper()
	store := repository.NewMemoryDocumentStore()
	bus := event.NewBus()
	ledger := NewBackupLedger(store, testLogger())
	svc := NewTrashService(context.Background(), store, ledger, bus, testLogger(), 30)
	return svc, store, bus
}

func TestMoveToTrashStampsExpiration(t *testing.T) {
	svc, _, _ := newTestTrashService(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(&now)

	id, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		OriginalID: "op_1",
		Category:   model.CategoryOperation,
		Payload:    json.RawMessage(`{"id":"op_1","value":"50"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	items, err := svc.GetTrashItems(context.Background(), model.TrashFilters{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, id, it.ID)
	assert.Equal(t, now, it.DeletedAt)
	assert.Equal(t, now.AddDate(0, 0, 30), it.ExpirationDate)
	assert.Equal(t, model.ComplexitySimple, it.ComplexityLevel)
	assert.Equal(t, "user", it.Metadata.DeletedBy)
	assert.Equal(t, "manual_deletion", it.Metadata.Reason)
}

func TestMoveToTrashValidatesInput(t *testing.T) {
	svc, _, _ := newTestTrashService(t)

	_, err := svc.MoveToTrash(context.Background(), model.DeletedItem{Category: model.CategoryTag})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.MoveToTrash(context.Background(), model.DeletedItem{
		Category: "folder",
		Payload:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestMoveToTrashPreservesPayload(t *testing.T) {
	svc, _, _ := newTestTrashService(t)
	payload := json.RawMessage(`{"id":"note_1","text":"watch the spread on opens"}`)

	id, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		OriginalID: "note_1",
		Category:   model.CategoryNote,
		Payload:    payload,
	})
	require.NoError(t, err)

	restored, err := svc.RestoreFromTrash(context.Background(), id)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(restored.Payload))
	assert.Equal(t, "note_1", restored.OriginalID)
}

func TestRestoreRemovesItemExactlyOnce(t *testing.T) {
	svc, _, _ := newTestTrashService(t)

	id, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		OriginalID: "tag_1",
		Category:   model.CategoryTag,
		Payload:    json.RawMessage(`{"id":"tag_1"}`),
	})
	require.NoError(t, err)

	_, err = svc.RestoreFromTrash(context.Background(), id)
	require.NoError(t, err)

	_, err = svc.RestoreFromTrash(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrTrashItemNotFound)

	err = svc.DeleteFromTrashPermanently(context.Background(), id)
	assert.ErrorIs(t, err, model.ErrTrashItemNotFound)
}

func TestEmptyTrashRemovesEverything(t *testing.T) {
	svc, _, _ := newTestTrashService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
			Category: model.CategoryNote,
			Payload:  json.RawMessage(`{}`),
		})
		require.NoError(t, err)
	}

	removed, err := svc.EmptyTrash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	removed, err = svc.EmptyTrash(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
	assert.Equal(t, 3, stats.TotalEverDeleted)
}

func TestGetTrashItemsFiltersAndSorts(t *testing.T) {
	svc, _, _ := newTestTrashService(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedClock(&now)

	for _, c := range []model.Category{model.CategoryTag, model.CategoryOperation, model.CategoryTag} {
		_, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
			Category: c,
			Payload:  json.RawMessage(`{}`),
		})
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}

	tags, err := svc.GetTrashItems(context.Background(), model.TrashFilters{Category: model.CategoryTag})
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	all, err := svc.GetTrashItems(context.Background(), model.TrashFilters{Sort: model.SortDateAsc})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].DeletedAt.Before(all[2].DeletedAt))
}

func TestRemoveExpiredSweepsOnlyPastRetention(t *testing.T) {
	svc, _, _ := newTestTrashService(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	svc.now = fixedClock(&now)

	oldID, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{"id":"old"}`),
	})
	require.NoError(t, err)

	now = base.AddDate(0, 0, 10)
	freshID, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{"id":"fresh"}`),
	})
	require.NoError(t, err)

	// Day 31: the first item is one day past its window, the second has 9 left.
	result, expiring, err := svc.RemoveExpired(context.Background(), base.AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)
	assert.Equal(t, 1, result.TotalItemsRemaining)

	items, err := svc.GetTrashItems(context.Background(), model.TrashFilters{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, freshID, items[0].ID)
	assert.NotEqual(t, oldID, items[0].ID)

	// 9 days remaining falls outside the 7-day warning window.
	assert.Empty(t, expiring)

	result, expiring, err = svc.RemoveExpired(context.Background(), base.AddDate(0, 0, 35))
	require.NoError(t, err)
	assert.Zero(t, result.DeletedCount)
	require.Len(t, expiring, 1)
	assert.Equal(t, freshID, expiring[0].ID)
}

func TestStatsCountsCategoriesAndExpiring(t *testing.T) {
	svc, _, _ := newTestTrashService(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedClock(&now)

	_, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryOperation,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	_, err = svc.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategorySession,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	now = now.AddDate(0, 0, 25)
	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 1, stats.ItemsByCategory[model.CategoryOperation])
	assert.Equal(t, 1, stats.ItemsByCategory[model.CategorySession])
	assert.Equal(t, 2, stats.ExpiringItems)
}

func TestDisabledModeWhenBackendUnavailable(t *testing.T) {
	store := repository.NewMemoryDocumentStore()
	store.SetAvailable(false)
	bus := event.NewBus()
	svc := NewTrashService(context.Background(), store, nil, bus, testLogger(), 30)

	assert.True(t, svc.Disabled())

	_, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryTag,
		Payload:  json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	_, err = svc.GetTrashItems(context.Background(), model.TrashFilters{})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	_, err = svc.EmptyTrash(context.Background())
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestMutationsPublishChangeEvents(t *testing.T) {
	svc, _, bus := newTestTrashService(t)
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	_, err := svc.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryTag,
		Payload:  json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	select {
	case e := <-events:
		assert.Equal(t, event.TypeTrashChanged, e.Type)
		assert.Empty(t, e.Origin)
		stats, ok := e.Payload.(model.TrashStats)
		require.True(t, ok)
		assert.Equal(t, 1, stats.TotalItems)
	case <-time.After(time.Second):
		t.Fatal("expected a trash change event")
	}
}

func TestExternalChangeOriginFiltering(t *testing.T) {
	svc, store, bus := newTestTrashService(t)
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	// A notification carrying our own origin is an echo of a local write.
	svc.HandleExternalChange(context.Background(), store.Origin())
	select {
	case e := <-events:
		t.Fatalf("unexpected event for own write: %v", e.Type)
	case <-time.After(50 * time.Millisecond):
	}

	svc.HandleExternalChange(context.Background(), "some-other-context")
	select {
	case e := <-events:
		assert.Equal(t, event.TypeTrashChanged, e.Type)
		assert.Equal(t, "some-other-context", e.Origin)
	case <-time.After(time.Second):
		t.Fatal("expected a relayed change event")
	}
}

func TestLastWriteWinsAcrossContexts(t *testing.T) {
	// Two services sharing one backend behave like two browser tabs: the
	// second writer's document replaces the first writer's, whole.
	store := repository.NewMemoryDocumentStore()
	a := NewTrashService(context.Background(), store, nil, event.NewBus(), testLogger(), 30)
	b := NewTrashService(context.Background(), store, nil, event.NewBus(), testLogger(), 30)

	idA, err := a.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryTag,
		Payload:  json.RawMessage(`{"id":"a"}`),
	})
	require.NoError(t, err)

	_, err = b.MoveToTrash(context.Background(), model.DeletedItem{
		Category: model.CategoryNote,
		Payload:  json.RawMessage(`{"id":"b"}`),
	})
	require.NoError(t, err)

	// B read A's write before its own, so both survive.
	items, err := a.GetTrashItems(context.Background(), model.TrashFilters{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = b.RestoreFromTrash(context.Background(), idA)
	require.NoError(t, err)

	items, err = a.GetTrashItems(context.Background(), model.TrashFilters{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
