package service

import (
	"context"
	"encoding/json"

	"go-trade-journal/internal/model"
)

// The engine never reaches into host state directly. Everything it touches
// outside its own trash/backup documents arrives through the interfaces below,
// injected at construction, so the engine stays testable without a running
// host application.

// DocumentStore is the raw persistent key-value backend: whole JSON documents
// read and written in full. Origin identifies the writing context inside
// change notifications.
type DocumentStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, body []byte) error
	Ping(ctx context.Context) error
	Origin() string
}

// ActiveSessionStore exposes the host's single active trading session.
type ActiveSessionStore interface {
	Get() *model.TradingSession
	Set(session *model.TradingSession)
	Clear()
}

// ArchivedSessionRepository is the host's archived-session history. It may be
// backed by anything, including a remote store, hence the contexts.
type ArchivedSessionRepository interface {
	GetByID(ctx context.Context, id string) (*model.TradingSession, error)
	Upsert(ctx context.Context, session *model.TradingSession) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.TradingSession, error)
}

// CollectionStore receives simple restored records (tags, notes, configs,
// analyses) for direct reinsertion into the host collection they came from.
type CollectionStore interface {
	Reinsert(ctx context.Context, category model.Category, originalID string, payload json.RawMessage) error
}

// UIRefreshNotifier asks the host UI to re-render after live state changed.
type UIRefreshNotifier interface {
	RefreshUI(reason string)
}

// NotificationSink delivers user-facing messages (toasts).
type NotificationSink interface {
	Notify(message string, severity string)
}

// ConflictPolicy answers what to do when a restored session claims the active
// slot while another session is already active. Implementations may block on
// user input; the context bounds how long the engine waits.
type ConflictPolicy interface {
	Resolve(ctx context.Context, restored *model.TradingSession, active *model.TradingSession) (model.ConflictResolution, error)
}

// ConflictPolicyFunc adapts a function to ConflictPolicy.
type ConflictPolicyFunc func(ctx context.Context, restored *model.TradingSession, active *model.TradingSession) (model.ConflictResolution, error)

func (f ConflictPolicyFunc) Resolve(ctx context.Context, restored *model.TradingSession, active *model.TradingSession) (model.ConflictResolution, error) {
	return f(ctx, restored, active)
}

// StaticConflictPolicy always answers with the given resolution. Used when a
// client pre-answers the conflict in its restore request.
func StaticConflictPolicy(resolution model.ConflictResolution) ConflictPolicy {
	return ConflictPolicyFunc(func(context.Context, *model.TradingSession, *model.TradingSession) (model.ConflictResolution, error) {
		return resolution, nil
	})
}

// UnresolvedConflictPolicy refuses to decide, forcing the caller to supply an
// explicit resolution. The default for stateless API clients.
func UnresolvedConflictPolicy() ConflictPolicy {
	return ConflictPolicyFunc(func(context.Context, *model.TradingSession, *model.TradingSession) (model.ConflictResolution, error) {
		return "", model.ErrConflictUnsolved
	})
}
