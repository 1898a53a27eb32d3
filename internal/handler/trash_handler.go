package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-trade-journal/internal/model"
	"go-trade-journal/internal/service"
	"go-trade-journal/pkg/apierror"
)

// TrashHandler is the HTTP surface of the trash engine.
type TrashHandler struct {
	trash      *service.TrashService
	reconciler *service.RestoreReconciler
	scheduler  *service.CleanupScheduler
	ledger     *service.BackupLedger
}

func NewTrashHandler(trash *service.TrashService, reconciler *service.RestoreReconciler, scheduler *service.CleanupScheduler, ledger *service.BackupLedger) *TrashHandler {
	return &TrashHandler{
		trash:      trash,
		reconciler: reconciler,
		scheduler:  scheduler,
		ledger:     ledger,
	}
}

func (h *TrashHandler) MoveToTrash(w http.ResponseWriter, r *http.Request) {
	var req model.MoveToTrashRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	trashID, err := h.trash.MoveToTrash(r.Context(), model.DeletedItem{
		OriginalID:      req.OriginalID,
		Category:        req.Category,
		ComplexityLevel: req.ComplexityLevel,
		Payload:         req.Payload,
		Context:         req.Context,
		Reason:          req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.trash.GetItem(r.Context(), trashID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, model.MoveToTrashResponse{
		TrashID:        trashID,
		ExpirationDate: item.ExpirationDate.Format(time.RFC3339),
	}, nil)
}

func (h *TrashHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	filters, err := parseTrashFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.trash.GetTrashItems(r.Context(), filters)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &model.Meta{Total: len(items)})
}

func (h *TrashHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.trash.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats, nil)
}

func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	trashID := chi.URLParam(r, "trashID")

	// An absent or empty body means "no resolution yet"; malformed JSON is
	// still rejected.
	var req model.RestoreRequest
	if r.Body != nil && r.Body != http.NoBody {
		if err := decodeBody(r, &req); err != nil && !isEmptyBody(err) {
			writeError(w, err)
			return
		}
	}

	var restored model.RestoredItem
	var err error
	if req.ConflictResolution != "" {
		restored, err = h.reconciler.RestoreWithResolution(r.Context(), trashID, req.ConflictResolution)
	} else {
		restored, err = h.reconciler.Restore(r.Context(), trashID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.RestoreResponse{Restored: restored}, nil)
}

func (h *TrashHandler) DeletePermanently(w http.ResponseWriter, r *http.Request) {
	trashID := chi.URLParam(r, "trashID")
	if err := h.trash.DeleteFromTrashPermanently(r.Context(), trashID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"trash_id": trashID}, nil)
}

func (h *TrashHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	removed, err := h.trash.EmptyTrash(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, model.EmptyTrashResponse{RemovedCount: removed}, nil)
}

func (h *TrashHandler) GetCleanupConfig(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.scheduler.Config(), nil)
}

func (h *TrashHandler) UpdateCleanupConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.CleanupConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, err)
		return
	}

	if err := h.scheduler.Configure(cfg); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.scheduler.Config(), nil)
}

func (h *TrashHandler) GetCleanupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scheduler.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats, nil)
}

func (h *TrashHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ItemSnapshots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	emergencies, err := h.ledger.EmergencySnapshots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"item_snapshots":      items,
		"emergency_snapshots": emergencies,
	}, nil)
}

func parseTrashFilters(r *http.Request) (model.TrashFilters, error) {
	var filters model.TrashFilters
	q := r.URL.Query()

	if raw := q.Get("category"); raw != "" {
		category := model.Category(raw)
		if !category.Valid() {
			return filters, apierror.BadRequest("Unknown category", raw)
		}
		filters.Category = category
	}

	if raw := q.Get("sort"); raw != "" {
		sortBy := model.SortOption(raw)
		if !sortBy.Valid() {
			return filters, apierror.BadRequest("Unknown sort option", raw)
		}
		filters.Sort = sortBy
	}

	if raw := q.Get("date_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, apierror.BadRequest("date_from must be RFC 3339", raw)
		}
		filters.DateFrom = &t
	}

	if raw := q.Get("date_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, apierror.BadRequest("date_to must be RFC 3339", raw)
		}
		filters.DateTo = &t
	}

	return filters, nil
}

func isEmptyBody(err error) bool {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Details == io.EOF.Error() || apiErr.Details == ""
}
