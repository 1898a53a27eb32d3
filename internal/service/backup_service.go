package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-trade-journal/internal/model"
	"go-trade-journal/pkg/ringbuf"
)

const (
	itemSnapshotCapacity      = 20
	emergencySnapshotCapacity = 5
)

// BackupLedger owns the "backup" document: two independent bounded snapshot
// lists, newest first. Snapshots are forensic only; nothing in the engine
// reads them back automatically.
type BackupLedger struct {
	mu     sync.Mutex
	store  DocumentStore
	logger *slog.Logger
	now    func() time.Time
}

func NewBackupLedger(store DocumentStore, logger *slog.Logger) *BackupLedger {
	return &BackupLedger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CreateItemBackup records a pre-deletion copy of a single record. The oldest
// snapshot falls off once the list is full.
func (l *BackupLedger) CreateItemBackup(ctx context.Context, category model.Category, payload json.RawMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.loadDoc(ctx)
	if err != nil {
		return err
	}

	now := l.now().UTC()
	ring := ringbuf.New[model.BackupSnapshot](itemSnapshotCapacity)
	ring.Replace(doc.ItemSnapshots)
	ring.PushFront(model.BackupSnapshot{
		ID:        "backup_" + uuid.NewString(),
		Timestamp: now,
		Category:  category,
		Payload:   payload,
	})

	doc.ItemSnapshots = ring.Snapshot()
	doc.Metadata.LastBackup = &now
	doc.Metadata.TotalBackups++

	return l.saveDoc(ctx, doc)
}

// CreateEmergencySnapshot captures the whole relevant application state, on a
// much smaller ring than item snapshots.
func (l *BackupLedger) CreateEmergencySnapshot(ctx context.Context, trigger string, state json.RawMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.loadDoc(ctx)
	if err != nil {
		return err
	}

	now := l.now().UTC()
	ring := ringbuf.New[model.EmergencySnapshot](emergencySnapshotCapacity)
	ring.Replace(doc.EmergencySnapshots)
	ring.PushFront(model.EmergencySnapshot{
		ID:        "emergency_" + uuid.NewString(),
		Timestamp: now,
		Trigger:   trigger,
		State:     state,
	})

	doc.EmergencySnapshots = ring.Snapshot()
	doc.Metadata.LastBackup = &now
	doc.Metadata.TotalBackups++

	if err := l.saveDoc(ctx, doc); err != nil {
		return err
	}

	l.logger.Info("emergency snapshot captured", "trigger", trigger)
	return nil
}

// ItemSnapshots lists pre-deletion snapshots, newest first.
func (l *BackupLedger) ItemSnapshots(ctx context.Context) ([]model.BackupSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.loadDoc(ctx)
	if err != nil {
		return nil, err
	}
	return doc.ItemSnapshots, nil
}

// EmergencySnapshots lists emergency captures, newest first.
func (l *BackupLedger) EmergencySnapshots(ctx context.Context) ([]model.EmergencySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.loadDoc(ctx)
	if err != nil {
		return nil, err
	}
	return doc.EmergencySnapshots, nil
}

func (l *BackupLedger) loadDoc(ctx context.Context) (*model.BackupDocument, error) {
	body, err := l.store.Load(ctx, documentKeyBackup)
	if err != nil {
		return nil, fmt.Errorf("load backup document: %w", err)
	}
	if body == nil {
		return &model.BackupDocument{
			Metadata: model.BackupDocumentMetadata{CreatedAt: l.now().UTC()},
		}, nil
	}

	var doc model.BackupDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode backup document: %w", err)
	}
	return &doc, nil
}

func (l *BackupLedger) saveDoc(ctx context.Context, doc *model.BackupDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode backup document: %w", err)
	}
	if err := l.store.Save(ctx, documentKeyBackup, body); err != nil {
		return fmt.Errorf("save backup document: %w", err)
	}
	return nil
}
