package handler

import (
	"net/http"

	"go-trade-journal/internal/database"
	"go-trade-journal/internal/service"
)

type HealthHandler struct {
	db    *database.DB
	trash *service.TrashService
}

func NewHealthHandler(db *database.DB, trash *service.TrashService) *HealthHandler {
	return &HealthHandler{db: db, trash: trash}
}

// Health reports overall status. The process answers 200 even when the trash
// engine is degraded; the body says which parts are down.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "up"

	if h.db == nil {
		dbStatus = "not_configured"
	} else if err := h.db.Health(r.Context()); err != nil {
		dbStatus = "down"
		status = "degraded"
	}

	trashDisabled := h.trash.Disabled()
	if trashDisabled {
		status = "degraded"
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"status":         status,
		"database":       dbStatus,
		"trash_disabled": trashDisabled,
	}, nil)
}
