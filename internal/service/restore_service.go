package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go-trade-journal/internal/event"
	"go-trade-journal/internal/model"
)

// RestoreReconciler re-applies restored payloads to live journal state. The
// trash removal has already committed by the time reconciliation starts, so a
// failure here is reported to the caller and the user but never retried and
// never rolls the item back into the trash.
type RestoreReconciler struct {
	trash       *TrashService
	active      ActiveSessionStore
	archived    ArchivedSessionRepository
	collections CollectionStore
	ui          UIRefreshNotifier
	notify      NotificationSink
	policy      ConflictPolicy
	bus         event.Bus
	logger      *slog.Logger
	now         func() time.Time
}

func NewRestoreReconciler(
	trash *TrashService,
	active ActiveSessionStore,
	archived ArchivedSessionRepository,
	collections CollectionStore,
	ui UIRefreshNotifier,
	notify NotificationSink,
	policy ConflictPolicy,
	bus event.Bus,
	logger *slog.Logger,
) *RestoreReconciler {
	if policy == nil {
		policy = UnresolvedConflictPolicy()
	}
	return &RestoreReconciler{
		trash:       trash,
		active:      active,
		archived:    archived,
		collections: collections,
		ui:          ui,
		notify:      notify,
		policy:      policy,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
}

// Restore pulls the item out of the trash and reconciles it using the
// configured conflict policy.
func (r *RestoreReconciler) Restore(ctx context.Context, trashID string) (model.RestoredItem, error) {
	return r.restore(ctx, trashID, r.policy)
}

// RestoreWithResolution reconciles with a pre-answered conflict resolution,
// bypassing the configured policy. Clients that hit a conflict on a plain
// restore retry through here.
func (r *RestoreReconciler) RestoreWithResolution(ctx context.Context, trashID string, resolution model.ConflictResolution) (model.RestoredItem, error) {
	if !resolution.Valid() {
		return model.RestoredItem{}, fmt.Errorf("%w: unknown conflict resolution %q", model.ErrInvalidInput, resolution)
	}
	return r.restore(ctx, trashID, StaticConflictPolicy(resolution))
}

func (r *RestoreReconciler) restore(ctx context.Context, trashID string, policy ConflictPolicy) (model.RestoredItem, error) {
	// Conflicts are resolved before the removal commits. Once the item leaves
	// the trash there is no second chance to ask.
	policy, err := r.preflightConflict(ctx, trashID, policy)
	if err != nil {
		return model.RestoredItem{}, err
	}

	item, err := r.trash.RestoreFromTrash(ctx, trashID)
	if err != nil {
		return model.RestoredItem{}, err
	}

	if err := r.reconcile(ctx, item, policy); err != nil {
		r.logger.Error("restore reconciliation failed",
			"trash_id", item.TrashID,
			"category", item.Category,
			"error", err,
		)
		if r.notify != nil {
			r.notify.Notify(fmt.Sprintf("Restore of %s completed only partially", item.Category), "error")
		}
		return item, err
	}

	r.logger.Info("item restored", "trash_id", item.TrashID, "category", item.Category)
	r.bus.Publish(event.New(event.TypeSessionRestored, item))
	if r.notify != nil {
		r.notify.Notify(fmt.Sprintf("Restored %s successfully", item.Category), "success")
	}
	return item, nil
}

// preflightConflict asks the policy ahead of the trash removal when a
// restored session will contend for the active slot. The answer is pinned so
// reconciliation never asks twice.
func (r *RestoreReconciler) preflightConflict(ctx context.Context, trashID string, policy ConflictPolicy) (ConflictPolicy, error) {
	peek, err := r.trash.GetItem(ctx, trashID)
	if err != nil {
		return nil, err
	}
	if peek.ComplexityLevel != model.ComplexityComplex || peek.Context == nil || !peek.Context.WasActive {
		return policy, nil
	}

	current := r.active.Get()
	if current == nil {
		return policy, nil
	}

	var restored model.TradingSession
	if err := json.Unmarshal(peek.Payload, &restored); err != nil {
		return nil, fmt.Errorf("%w: malformed session payload", model.ErrInvalidInput)
	}
	if current.ID == restored.ID {
		return policy, nil
	}

	resolution, err := policy.Resolve(ctx, &restored, current)
	if err != nil {
		return nil, err
	}
	if !resolution.Valid() {
		return nil, fmt.Errorf("%w: unknown conflict resolution %q", model.ErrInvalidInput, resolution)
	}
	return StaticConflictPolicy(resolution), nil
}

func (r *RestoreReconciler) reconcile(ctx context.Context, item model.RestoredItem, policy ConflictPolicy) error {
	switch item.ComplexityLevel {
	case model.ComplexityMedium:
		return r.reconcileOperation(ctx, item)
	case model.ComplexityComplex:
		return r.reconcileSession(ctx, item, policy)
	default:
		return r.reconcileSimple(ctx, item)
	}
}

// reconcileSimple reinserts the record into its host collection unchanged.
// No derived state to recompute.
func (r *RestoreReconciler) reconcileSimple(ctx context.Context, item model.RestoredItem) error {
	steps := []model.StepResult{}

	if err := r.collections.Reinsert(ctx, item.Category, item.OriginalID, item.Payload); err != nil {
		steps = append(steps, model.StepResult{Step: "reinsert", Err: err.Error()})
		return &model.ReconciliationError{TrashID: item.TrashID, Category: item.Category, Steps: steps, Cause: err}
	}
	steps = append(steps, model.StepResult{Step: "reinsert", OK: true})

	if r.ui != nil {
		r.ui.RefreshUI(string(item.Category) + "_restored")
	}
	return nil
}

// reconcileOperation reinserts a trade into its host session at the original
// index when still in bounds, then replays the whole operation list to
// rebuild capital and result from scratch.
func (r *RestoreReconciler) reconcileOperation(ctx context.Context, item model.RestoredItem) error {
	var steps []model.StepResult
	fail := func(step string, err error) error {
		steps = append(steps, model.StepResult{Step: step, Err: err.Error()})
		return &model.ReconciliationError{TrashID: item.TrashID, Category: item.Category, Steps: steps, Cause: err}
	}

	var op model.Operation
	if err := json.Unmarshal(item.Payload, &op); err != nil {
		return fail("decode", fmt.Errorf("decode operation payload: %w", err))
	}
	steps = append(steps, model.StepResult{Step: "decode", OK: true})

	dctx := item.Context
	if dctx == nil {
		dctx = &model.DeletionContext{SessionActive: true}
	}

	if dctx.SessionActive || dctx.ArchivedSessionID == "" {
		session := r.active.Get()
		if session == nil {
			return fail("locate_session", model.ErrNoActiveSession)
		}
		steps = append(steps, model.StepResult{Step: "locate_session", OK: true})

		session.InsertOperation(op, dctx.OriginalIndex)
		session.ReplayCapital()
		r.active.Set(session)
		steps = append(steps, model.StepResult{Step: "replay_capital", OK: true})
	} else {
		session, err := r.archived.GetByID(ctx, dctx.ArchivedSessionID)
		if err != nil {
			return fail("locate_session", err)
		}
		steps = append(steps, model.StepResult{Step: "locate_session", OK: true})

		session.InsertOperation(op, dctx.OriginalIndex)
		session.ReplayCapital()
		if err := r.archived.Upsert(ctx, session); err != nil {
			return fail("persist_session", err)
		}
		steps = append(steps, model.StepResult{Step: "replay_capital", OK: true})
	}

	if r.ui != nil {
		r.ui.RefreshUI("operation_restored")
	}
	return nil
}

// reconcileSession reconstructs a whole session. When the restored session
// was active at deletion time and another session holds the active slot now,
// the policy decides before any state is touched.
func (r *RestoreReconciler) reconcileSession(ctx context.Context, item model.RestoredItem, policy ConflictPolicy) error {
	var steps []model.StepResult
	fail := func(step string, err error) error {
		steps = append(steps, model.StepResult{Step: step, Err: err.Error()})
		return &model.ReconciliationError{TrashID: item.TrashID, Category: item.Category, Steps: steps, Cause: err}
	}

	var session model.TradingSession
	if err := json.Unmarshal(item.Payload, &session); err != nil {
		return fail("decode", fmt.Errorf("decode session payload: %w", err))
	}
	steps = append(steps, model.StepResult{Step: "decode", OK: true})

	wasActive := item.Context != nil && item.Context.WasActive
	current := r.active.Get()

	if wasActive && current != nil && current.ID != session.ID {
		resolution, err := policy.Resolve(ctx, &session, current)
		if err != nil {
			return fail("resolve_conflict", err)
		}
		steps = append(steps, model.StepResult{Step: "resolve_conflict", OK: true})

		switch resolution {
		case model.ResolutionReplace:
			now := r.now().UTC()
			current.Active = false
			if current.EndedAt == nil {
				current.EndedAt = &now
			}
			if err := r.archived.Upsert(ctx, current); err != nil {
				return fail("archive_active", err)
			}
			steps = append(steps, model.StepResult{Step: "archive_active", OK: true})

			session.Active = true
			session.ReplayCapital()
			r.active.Set(&session)
			steps = append(steps, model.StepResult{Step: "install_active", OK: true})

		case model.ResolutionKeepAsHistory:
			session.Active = false
			session.ReplayCapital()
			if err := r.archived.Upsert(ctx, &session); err != nil {
				return fail("append_history", err)
			}
			steps = append(steps, model.StepResult{Step: "append_history", OK: true})

		default:
			return fail("resolve_conflict", fmt.Errorf("%w: unknown resolution %q", model.ErrInvalidInput, resolution))
		}
	} else if wasActive {
		// Active slot is free (or held by the same session id). Reclaim it.
		session.Active = true
		session.ReplayCapital()
		r.active.Set(&session)
		steps = append(steps, model.StepResult{Step: "install_active", OK: true})
	} else {
		// Archived at deletion time; goes back into history. Upsert by id, so
		// restoring twice cannot duplicate the history entry.
		session.Active = false
		session.ReplayCapital()
		if err := r.archived.Upsert(ctx, &session); err != nil {
			return fail("append_history", err)
		}
		steps = append(steps, model.StepResult{Step: "append_history", OK: true})
	}

	if r.ui != nil {
		r.ui.RefreshUI("session_restored")
	}
	return nil
}
