package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-trade-journal/internal/model"
	"go-trade-journal/internal/service"
)

// SessionHandler exposes read access to the active session and archived
// history, mainly so a restore's effect can be observed over the API.
type SessionHandler struct {
	active   service.ActiveSessionStore
	archived service.ArchivedSessionRepository
}

func NewSessionHandler(active service.ActiveSessionStore, archived service.ArchivedSessionRepository) *SessionHandler {
	return &SessionHandler{active: active, archived: archived}
}

// GetActive returns the active session, or a null body when the slot is free.
func (h *SessionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.active.Get(), nil)
}

func (h *SessionHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.archived.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, sessions, &model.Meta{Total: len(sessions)})
}

func (h *SessionHandler) GetArchived(w http.ResponseWriter, r *http.Request) {
	session, err := h.archived.GetByID(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, session, nil)
}
