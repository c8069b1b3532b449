package handlers

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-index/internal/database"
	"media-index/internal/iterator"
	"media-index/internal/logging"
	"media-index/internal/mediatypes"
	"media-index/internal/playlist"
	"media-index/internal/repository"
)

// FileResponse is the file a playlist cursor moved to.
type FileResponse struct {
	Playlist     string           `json:"playlist"`
	RepositoryID string           `json:"repositoryId"`
	FileID       string           `json:"fileId"`
	Name         string           `json:"name"`
	Kind         mediatypes.Kind  `json:"kind"`
	MimeType     string           `json:"mimeType"`
	LastModified time.Time        `json:"lastModified"`
	Position     int              `json:"position"`
	Length       int              `json:"length"`
	Record       *database.Record `json:"record,omitempty"`
}

// ListPlaylists returns the configured playlists with their cursors.
func (h *Handlers) ListPlaylists(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.playlists.Statuses())
}

// NextInPlaylist advances the cursor of a playlist.
func (h *Handlers) NextInPlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := h.playlist(w, r)
	if !ok {
		return
	}

	file, err := p.Next(r.Context())
	if err != nil {
		writePlaylistError(w, p.Name(), err)
		return
	}
	h.writeFile(w, r, p, file)
}

// PreviousInPlaylist moves the cursor of a playlist back by the query
// parameter n, 1 by default.
func (h *Handlers) PreviousInPlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := h.playlist(w, r)
	if !ok {
		return
	}

	n := 1
	if s := r.URL.Query().Get("n"); s != "" {
		var err error
		if n, err = strconv.Atoi(s); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid n parameter")
			return
		}
	}

	file, err := p.Previous(r.Context(), n)
	if err != nil {
		writePlaylistError(w, p.Name(), err)
		return
	}
	h.writeFile(w, r, p, file)
}

// ResetPlaylist drops the cursor so the next file starts a new pass.
func (h *Handlers) ResetPlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := h.playlist(w, r)
	if !ok {
		return
	}
	p.Reset()
	writeJSONStatus(w, http.StatusOK, "reset", "Playlist "+p.Name()+" was reset")
}

// ExportPlaylist writes the current selection of a playlist as WPL.
func (h *Handlers) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := h.playlist(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.ms-wpl")
	w.Header().Set("Content-Disposition", `attachment; filename="`+p.Name()+`.wpl"`)
	if err := p.ExportWPL(r.Context(), w); err != nil {
		logging.Error("failed to export playlist %s: %v", p.Name(), err)
	}
}

func (h *Handlers) playlist(w http.ResponseWriter, r *http.Request) (*playlist.Playlist, bool) {
	p, err := h.playlists.Get(mux.Vars(r)["name"])
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Playlist not found")
		return nil, false
	}
	return p, true
}

func (h *Handlers) writeFile(w http.ResponseWriter, r *http.Request, p *playlist.Playlist, file repository.FileHandle) {
	status := p.Status()
	resp := FileResponse{
		Playlist:     p.Name(),
		RepositoryID: file.RepositoryID(),
		FileID:       file.FileID(),
		Name:         file.Name(),
		Kind:         file.Kind(),
		MimeType:     mediatypes.GetMimeType(strings.ToLower(path.Ext(file.Name()))),
		LastModified: file.LastModified(),
		Position:     status.Position,
		Length:       status.Length,
	}

	rec, err := h.db.Lookup(r.Context(), file.RepositoryID(), file.FileID())
	switch {
	case err == nil:
		resp.Record = rec
	case !database.IsNotFound(err):
		logging.Warn("failed to look up %s/%s: %v", file.RepositoryID(), file.FileID(), err)
	}

	writeJSON(w, http.StatusOK, resp)
}

func writePlaylistError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, playlist.ErrNoContent):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, iterator.ErrExhausted):
		writeJSONError(w, http.StatusNotFound, "No earlier file in playlist")
	case repository.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Error("playlist %s failed: %v", name, err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to move playlist cursor")
	}
}
