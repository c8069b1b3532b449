package handlers

import (
	"errors"
	"net/http"
	"time"

	"media-index/internal/database"
	"media-index/internal/indexer"
	"media-index/internal/logging"
	"media-index/internal/repository"
)

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	database.IndexStats
	Indexing    bool      `json:"indexing"`
	LastIndexed time.Time `json:"lastIndexed"`
}

// RepositoryStatus is one entry of GET /api/repositories.
type RepositoryStatus struct {
	ID         string               `json:"id"`
	Records    int                  `json:"records"`
	LastBuild  time.Time            `json:"lastBuild"`
	Scheduled  bool                 `json:"scheduled"`
	LastResult *indexer.BuildResult `json:"lastResult,omitempty"`
}

// GetStats returns record totals of the index.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		logging.Error("failed to get index stats: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to get index stats")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		IndexStats:  stats,
		Indexing:    h.scheduler.IsIndexing(),
		LastIndexed: h.scheduler.LastIndexTime(),
	})
}

// ListRepositories returns every registered repository with its record
// count and the outcome of its last pass.
func (h *Handlers) ListRepositories(w http.ResponseWriter, r *http.Request) {
	scheduled := make(map[string]bool)
	for _, id := range h.scheduler.Queued() {
		scheduled[id] = true
	}
	results := h.scheduler.GetHealthStatus().LastResults

	out := make([]RepositoryStatus, 0, h.registry.Len())
	for _, id := range h.registry.IDs() {
		status := RepositoryStatus{ID: id, Scheduled: scheduled[id]}

		var err error
		if status.Records, err = h.db.CountRepository(r.Context(), id); err != nil {
			logging.Error("failed to count records of %s: %v", id, err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to get repository status")
			return
		}
		if status.LastBuild, err = h.db.GetLastBuild(r.Context(), id); err != nil {
			logging.Warn("failed to get last build of %s: %v", id, err)
		}
		if res, ok := results[id]; ok {
			status.LastResult = &res
		}
		out = append(out, status)
	}

	writeJSON(w, http.StatusOK, out)
}

// ListTags returns every tag with the number of records carrying it.
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.ListTags(r.Context())
	if err != nil {
		logging.Error("failed to list tags: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to list tags")
		return
	}
	if tags == nil {
		tags = []database.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// TriggerReindex starts a pass in the background. Query parameters:
// mode (update or rebuild, default update) and repository, which may be
// repeated and defaults to every repository.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	mode, err := indexer.ParseMode(query.Get("mode"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids := query["repository"]

	err = h.scheduler.TriggerIndex(mode, ids...)
	switch {
	case errors.Is(err, indexer.ErrIndexInProgress):
		writeJSONStatus(w, http.StatusConflict, "already_running", "Indexing is already in progress")
	case errors.Is(err, repository.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case err != nil:
		logging.Error("failed to trigger %s: %v", mode, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to start indexing")
	default:
		logging.Info("Manual %s triggered for %v", mode, repositoriesLabel(ids))
		writeJSONStatus(w, http.StatusAccepted, "started", "Re-indexing started")
	}
}

func repositoriesLabel(ids []string) any {
	if len(ids) == 0 {
		return "all repositories"
	}
	return ids
}
