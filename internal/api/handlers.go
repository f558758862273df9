package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lickdex/internal/ingest"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *ingest.Service
	notify ingest.EventCallback
}

// NewHandler creates a new Handler.
func NewHandler(svc *ingest.Service, notify ingest.EventCallback) *Handler {
	return &Handler{svc: svc, notify: notify}
}

// ListSongs handles GET /api/songs.
//
//	@Summary		List songs ordered by title
//	@Tags			songs
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	SongListResponse
//	@Security		BearerAuth
//	@Router			/songs [get]
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	songs, total, err := h.svc.ListSongs(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err, "list songs")
		return
	}
	writeJSON(w, http.StatusOK, SongListResponse{Songs: songs, Total: total})
}

// GetSong handles GET /api/songs/{id}.
//
//	@Summary		Get a song with its analyzed tracks
//	@Tags			songs
//	@Produce		json
//	@Param			id	path		string	true	"Song ID"
//	@Success		200	{object}	models.Song
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs/{id} [get]
func (h *Handler) GetSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.svc.GetSong(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "get song")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// SongFile handles GET /api/songs/{id}/file and returns the stored tab.
func (h *Handler) SongFile(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.SongFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "song file")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DeleteSong handles DELETE /api/songs/{id}.
//
//	@Summary		Delete a song; canonical measures are kept
//	@Tags			songs
//	@Param			id	path	string	true	"Song ID"
//	@Success		204	"Song deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/songs/{id} [delete]
func (h *Handler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteSong(r.Context(), id); err != nil {
		writeError(w, err, "delete song")
		return
	}
	if h.notify != nil {
		h.notify(ingest.EventDeleted, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTrack handles GET /api/tracks/{id}.
//
//	@Summary		Get a track's measure and pitch statistics
//	@Tags			tracks
//	@Produce		json
//	@Param			id		path		string	true	"Track ID"
//	@Param			match	query		number	false	"Minimum measure match in [0,1]"
//	@Success		200		{object}	models.Track
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tracks/{id} [get]
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	minMatch := 0.0
	if raw := r.URL.Query().Get("match"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			writeJSON(w, http.StatusBadRequest, errorBody("match must be a number in [0,1]"))
			return
		}
		minMatch = v
	}
	track, err := h.svc.GetTrack(r.Context(), chi.URLParam(r, "id"), minMatch)
	if err != nil {
		writeError(w, err, "get track")
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// AddTrackKey handles PUT /api/tracks/{id}/keys/{key}.
//
//	@Summary		Tag a track with a key
//	@Tags			tracks
//	@Produce		json
//	@Param			id	path		string	true	"Track ID"
//	@Param			key	path		string	true	"Key, e.g. Am or F#"
//	@Success		200	{object}	TrackKeysResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tracks/{id}/keys/{key} [put]
func (h *Handler) AddTrackKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	keys, err := h.svc.AddTrackKey(r.Context(), id, chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err, "add track key")
		return
	}
	writeJSON(w, http.StatusOK, TrackKeysResponse{TrackID: id, Keys: keys})
}

// RemoveTrackKey handles DELETE /api/tracks/{id}/keys/{key}.
func (h *Handler) RemoveTrackKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	keys, err := h.svc.RemoveTrackKey(r.Context(), id, chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err, "remove track key")
		return
	}
	writeJSON(w, http.StatusOK, TrackKeysResponse{TrackID: id, Keys: keys})
}

// GetMeasure handles GET /api/measures/{id}.
//
//	@Summary		Get a canonical measure and its beats
//	@Tags			measures
//	@Produce		json
//	@Param			id	path		string	true	"Measure ID"
//	@Success		200	{object}	models.Measure
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/measures/{id} [get]
func (h *Handler) GetMeasure(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMeasure(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "get measure")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Licks handles GET /api/measures/{id}/licks.
//
//	@Summary		List every track a canonical measure occurs in
//	@Tags			measures
//	@Produce		json
//	@Param			id	path		string	true	"Measure ID"
//	@Success		200	{object}	LicksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/measures/{id}/licks [get]
func (h *Handler) Licks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	licks, err := h.svc.Licks(r.Context(), id)
	if err != nil {
		writeError(w, err, "licks")
		return
	}
	writeJSON(w, http.StatusOK, LicksResponse{MeasureID: id, Licks: licks})
}

// MeasureMIDI handles GET /api/measures/{id}/midi.
func (h *Handler) MeasureMIDI(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tempo, _ := strconv.Atoi(r.URL.Query().Get("tempo"))
	data, err := h.svc.MeasureMIDI(r.Context(), id, tempo)
	if err != nil {
		writeError(w, err, "measure midi")
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.mid"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over song title, artist and album
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
