package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-trade-journal/internal/event"
	"go-trade-journal/internal/model"
)

const (
	documentKeyTrash  = "trash"
	documentKeyBackup = "backup"

	expiringSoonWindow = 7 // days
)

// TrashService owns the "trash" document: soft-deleted records waiting to be
// restored, permanently deleted, or swept. Every mutation is a full
// read-modify-write of the document; concurrent writers from other contexts
// follow last-write-wins, surfaced to clients through change events rather
// than resolved here.
type TrashService struct {
	mu     sync.Mutex
	store  DocumentStore
	ledger *BackupLedger
	bus    event.Bus
	logger *slog.Logger

	retentionDays int
	disabled      bool
	now           func() time.Time
}

// NewTrashService pings the backend once. When the backend is unreachable the
// service comes up disabled: every operation returns ErrStorageUnavailable
// and the host keeps running without trash functionality.
func NewTrashService(ctx context.Context, store DocumentStore, ledger *BackupLedger, bus event.Bus, logger *slog.Logger, retentionDays int) *TrashService {
	if retentionDays <= 0 {
		retentionDays = model.DefaultCleanupConfig().MaxRetentionDays
	}

	s := &TrashService{
		store:         store,
		ledger:        ledger,
		bus:           bus,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}

	if err := store.Ping(ctx); err != nil {
		s.disabled = true
		logger.Warn("trash storage unavailable, trash disabled", "error", err)
	}

	return s
}

// Disabled reports whether the service is in inert no-op mode.
func (s *TrashService) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// SetRetentionDays changes the window applied to future deletions only.
// Expiration dates already stamped on trashed items never move.
func (s *TrashService) SetRetentionDays(days int) {
	if days <= 0 {
		return
	}
	s.mu.Lock()
	s.retentionDays = days
	s.mu.Unlock()
}

// MoveToTrash stamps the item with deletion and expiration timestamps and
// appends it to the trash document. A pre-deletion backup snapshot is taken
// first; snapshot failures are logged and do not block the deletion.
func (s *TrashService) MoveToTrash(ctx context.Context, item model.DeletedItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return "", model.ErrStorageUnavailable
	}
	if len(item.Payload) == 0 {
		return "", fmt.Errorf("%w: missing payload", model.ErrInvalidInput)
	}
	if !item.Category.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", model.ErrInvalidInput, item.Category)
	}
	level := item.ComplexityLevel
	if level == "" {
		level = model.ComplexitySimple
	}
	if !level.Valid() {
		return "", fmt.Errorf("%w: unknown complexity level %q", model.ErrInvalidInput, item.ComplexityLevel)
	}

	if s.ledger != nil {
		if err := s.ledger.CreateItemBackup(ctx, item.Category, item.Payload); err != nil {
			s.logger.Warn("pre-deletion backup failed", "category", item.Category, "error", err)
		}
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	deletedBy := item.DeletedBy
	if deletedBy == "" {
		deletedBy = "user"
	}
	reason := item.Reason
	if reason == "" {
		reason = "manual_deletion"
	}

	trashItem := model.TrashItem{
		ID:              "trash_" + uuid.NewString(),
		OriginalID:      item.OriginalID,
		Category:        item.Category,
		ComplexityLevel: level,
		Payload:         item.Payload,
		Context:         item.Context,
		DeletedAt:       now,
		ExpirationDate:  now.AddDate(0, 0, s.retentionDays),
		Metadata:        model.TrashMetadata{DeletedBy: deletedBy, Reason: reason},
	}

	doc.Items = append(doc.Items, trashItem)
	doc.Metadata.TotalEverDeleted++
	doc.Metadata.LastUpdate = &now

	if err := s.saveTrashDoc(ctx, doc); err != nil {
		return "", err
	}

	s.logger.Info("item moved to trash",
		"trash_id", trashItem.ID,
		"category", trashItem.Category,
		"expires", trashItem.ExpirationDate,
	)
	s.publishChanged(doc, "")

	return trashItem.ID, nil
}

// RestoreFromTrash removes the item from the trash document and hands back
// its payload and deletion context. The removal commits before any
// reconciliation runs; a failed reconciliation must not put the item back.
func (s *TrashService) RestoreFromTrash(ctx context.Context, trashID string) (model.RestoredItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return model.RestoredItem{}, model.ErrStorageUnavailable
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return model.RestoredItem{}, err
	}

	idx := -1
	for i, it := range doc.Items {
		if it.ID == trashID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.RestoredItem{}, fmt.Errorf("%w: %s", model.ErrTrashItemNotFound, trashID)
	}

	item := doc.Items[idx]
	doc.Items = append(doc.Items[:idx], doc.Items[idx+1:]...)
	now := s.now().UTC()
	doc.Metadata.TotalRestored++
	doc.Metadata.LastUpdate = &now

	if err := s.saveTrashDoc(ctx, doc); err != nil {
		return model.RestoredItem{}, err
	}

	s.logger.Info("item removed from trash for restore", "trash_id", trashID, "category", item.Category)
	s.publishChanged(doc, "")

	return model.RestoredItem{
		TrashID:         item.ID,
		OriginalID:      item.OriginalID,
		Category:        item.Category,
		ComplexityLevel: item.ComplexityLevel,
		Payload:         item.Payload,
		Context:         item.Context,
	}, nil
}

// GetItem returns a single item without removing it.
func (s *TrashService) GetItem(ctx context.Context, trashID string) (model.TrashItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return model.TrashItem{}, model.ErrStorageUnavailable
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return model.TrashItem{}, err
	}
	for _, it := range doc.Items {
		if it.ID == trashID {
			return it, nil
		}
	}
	return model.TrashItem{}, fmt.Errorf("%w: %s", model.ErrTrashItemNotFound, trashID)
}

// DeleteFromTrashPermanently removes a single item with no recovery path.
func (s *TrashService) DeleteFromTrashPermanently(ctx context.Context, trashID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return model.ErrStorageUnavailable
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i, it := range doc.Items {
		if it.ID == trashID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", model.ErrTrashItemNotFound, trashID)
	}

	removed := doc.Items[idx]
	doc.Items = append(doc.Items[:idx], doc.Items[idx+1:]...)
	now := s.now().UTC()
	doc.Metadata.LastUpdate = &now

	if err := s.saveTrashDoc(ctx, doc); err != nil {
		return err
	}

	s.logger.Info("item permanently deleted", "trash_id", trashID, "category", removed.Category)
	s.publishChanged(doc, "")
	return nil
}

// EmptyTrash removes every item at once and returns how many were removed.
func (s *TrashService) EmptyTrash(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return 0, model.ErrStorageUnavailable
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return 0, err
	}

	removed := len(doc.Items)
	if removed == 0 {
		return 0, nil
	}

	now := s.now().UTC()
	doc.Items = nil
	doc.Metadata.LastUpdate = &now
	doc.Metadata.LastEmptied = &now

	if err := s.saveTrashDoc(ctx, doc); err != nil {
		return 0, err
	}

	s.logger.Info("trash emptied", "removed", removed)
	s.publishChanged(doc, "")
	return removed, nil
}

// GetTrashItems returns a filtered, ordered listing.
func (s *TrashService) GetTrashItems(ctx context.Context, filters model.TrashFilters) ([]model.TrashItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return nil, model.ErrStorageUnavailable
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return nil, err
	}
	return filters.Apply(doc.Items), nil
}

// GetStats computes a stats snapshot from the current document.
func (s *TrashService) GetStats(ctx context.Context) (model.TrashStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return model.TrashStats{}, model.ErrStorageUnavailable
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return model.TrashStats{}, err
	}
	return s.statsLocked(doc), nil
}

// RemoveExpired drops every item whose expiration has passed and returns the
// sweep result plus the items entering their final week. Used by the cleanup
// scheduler; the asOf instant is the scheduler's clock, not this service's.
func (s *TrashService) RemoveExpired(ctx context.Context, asOf time.Time) (model.CleanupResult, []model.TrashItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return model.CleanupResult{}, nil, model.ErrStorageUnavailable
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		return model.CleanupResult{}, nil, err
	}

	kept := doc.Items[:0:0]
	var expiringSoon []model.TrashItem
	deleted := 0
	for _, it := range doc.Items {
		if it.Expired(asOf) {
			deleted++
			continue
		}
		if d := it.DaysUntilExpiration(asOf); d > 0 && d <= expiringSoonWindow {
			expiringSoon = append(expiringSoon, it)
		}
		kept = append(kept, it)
	}

	result := model.CleanupResult{
		Timestamp:           asOf,
		DeletedCount:        deleted,
		ExpiringSoonCount:   len(expiringSoon),
		TotalItemsRemaining: len(kept),
	}

	if deleted > 0 {
		now := asOf.UTC()
		doc.Items = kept
		doc.Metadata.TotalAutoDeleted += deleted
		doc.Metadata.LastCleanup = &now
		doc.Metadata.LastUpdate = &now

		if err := s.saveTrashDoc(ctx, doc); err != nil {
			return model.CleanupResult{}, nil, err
		}

		s.logger.Info("expired trash items removed", "deleted", deleted, "remaining", len(kept))
		s.publishChanged(doc, "")
	}

	return result, expiringSoon, nil
}

// HandleExternalChange reacts to a change notification from the backend. Own
// writes are identified by origin and skipped; foreign writes are re-read and
// re-announced on the local bus so connected clients refresh.
func (s *TrashService) HandleExternalChange(ctx context.Context, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled || origin == s.store.Origin() {
		return
	}

	doc, err := s.loadTrashDoc(ctx)
	if err != nil {
		s.logger.Warn("failed to reload trash after external change", "error", err)
		return
	}

	s.logger.Debug("trash changed in another context", "origin", origin)
	s.publishChanged(doc, origin)
}

func (s *TrashService) loadTrashDoc(ctx context.Context) (*model.TrashDocument, error) {
	body, err := s.store.Load(ctx, documentKeyTrash)
	if err != nil {
		return nil, fmt.Errorf("load trash document: %w", err)
	}
	if body == nil {
		return &model.TrashDocument{
			Metadata: model.TrashDocumentMetadata{CreatedAt: s.now().UTC()},
		}, nil
	}

	var doc model.TrashDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode trash document: %w", err)
	}
	return &doc, nil
}

func (s *TrashService) saveTrashDoc(ctx context.Context, doc *model.TrashDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode trash document: %w", err)
	}
	if err := s.store.Save(ctx, documentKeyTrash, body); err != nil {
		return fmt.Errorf("save trash document: %w", err)
	}
	return nil
}

func (s *TrashService) statsLocked(doc *model.TrashDocument) model.TrashStats {
	now := s.now().UTC()
	stats := model.TrashStats{
		TotalItems:       len(doc.Items),
		ItemsByCategory:  make(map[model.Category]int),
		TotalEverDeleted: doc.Metadata.TotalEverDeleted,
		TotalRestored:    doc.Metadata.TotalRestored,
		LastCleanup:      doc.Metadata.LastCleanup,
	}

	for _, it := range doc.Items {
		stats.ItemsByCategory[it.Category]++
		if d := it.DaysUntilExpiration(now); d > 0 && d <= expiringSoonWindow {
			stats.ExpiringItems++
		}
		if stats.OldestItem == nil || it.DeletedAt.Before(*stats.OldestItem) {
			t := it.DeletedAt
			stats.OldestItem = &t
		}
		if stats.NewestItem == nil || it.DeletedAt.After(*stats.NewestItem) {
			t := it.DeletedAt
			stats.NewestItem = &t
		}
	}

	return stats
}

func (s *TrashService) publishChanged(doc *model.TrashDocument, origin string) {
	if s.bus == nil {
		return
	}
	e := event.New(event.TypeTrashChanged, s.statsLocked(doc))
	e.Origin = origin
	s.bus.Publish(e)
}
