package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"media-index/internal/database"
	"media-index/internal/indexer"
	"media-index/internal/playlist"
	"media-index/internal/repository"
)

type Handlers struct {
	db        *database.Database
	scheduler *indexer.Scheduler
	registry  *repository.Registry
	playlists *playlist.Set
}

func New(db *database.Database, scheduler *indexer.Scheduler, registry *repository.Registry, playlists *playlist.Set) *Handlers {
	return &Handlers{
		db:        db,
		scheduler: scheduler,
		registry:  registry,
		playlists: playlists,
	}
}

// Router registers every admin route. Middleware given in mw runs for
// matched routes only, so it sees the route template.
func (h *Handlers) Router(mw ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(mw...)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/repositories", h.ListRepositories).Methods(http.MethodGet)
	api.HandleFunc("/tags", h.ListTags).Methods(http.MethodGet)
	api.HandleFunc("/reindex", h.TriggerReindex).Methods(http.MethodPost)

	api.HandleFunc("/playlists", h.ListPlaylists).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{name}/next", h.NextInPlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{name}/previous", h.PreviousInPlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{name}/reset", h.ResetPlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{name}/wpl", h.ExportPlaylist).Methods(http.MethodGet)

	return r
}
