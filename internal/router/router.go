package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-trade-journal/internal/config"
	"go-trade-journal/internal/handler"
	"go-trade-journal/internal/middleware"
	"go-trade-journal/internal/websocket"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	trashHandler *handler.TrashHandler,
	sessionHandler *handler.SessionHandler,
	healthHandler *handler.HealthHandler,
	hub *websocket.Hub,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.DestructiveRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", healthHandler.Health)

	r.Route("/api/v1", func(api chi.Router) {
		// The websocket upgrade must not run under the timeout handler; the
		// connection outlives any sane request deadline.
		api.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))
			if cfg.APITokenSecret != "" {
				api.Use(authMiddleware.RequireAuth)
			}

			api.Route("/trash", func(trash chi.Router) {
				trash.Post("/", trashHandler.MoveToTrash)
				trash.Get("/", trashHandler.ListTrash)
				trash.Delete("/", trashHandler.EmptyTrash)
				trash.Get("/stats", trashHandler.GetStats)
				trash.Get("/backups", trashHandler.ListBackups)
				trash.Route("/cleanup", func(cleanup chi.Router) {
					cleanup.Get("/config", trashHandler.GetCleanupConfig)
					cleanup.Put("/config", trashHandler.UpdateCleanupConfig)
					cleanup.Get("/stats", trashHandler.GetCleanupStats)
				})
				trash.Post("/{trashID}/restore", trashHandler.Restore)
				trash.Delete("/{trashID}", trashHandler.DeletePermanently)
			})

			api.Get("/session", sessionHandler.GetActive)
			api.Get("/sessions", sessionHandler.ListArchived)
			api.Get("/sessions/{sessionID}", sessionHandler.GetArchived)
		})
	})

	return r
}
