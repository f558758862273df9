package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lickdex/internal/ingest"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// notify, if non-nil, is told about songs added or removed through the API.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *ingest.Service, authEnabled bool, token string, notify ingest.EventCallback, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, notify)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tab files.
	r.Post("/upload", h.Upload)
	r.Post("/tabinfo", h.TabInfo)
	r.Post("/analyze", h.Analyze)

	// Songs.
	r.Get("/songs", h.ListSongs)
	r.Get("/songs/{id}", h.GetSong)
	r.Get("/songs/{id}/file", h.SongFile)
	r.Delete("/songs/{id}", h.DeleteSong)

	// Statistics and canonical content.
	r.Get("/tracks/{id}", h.GetTrack)
	r.Put("/tracks/{id}/keys/{key}", h.AddTrackKey)
	r.Delete("/tracks/{id}/keys/{key}", h.RemoveTrackKey)
	r.Get("/measures/{id}", h.GetMeasure)
	r.Get("/measures/{id}/licks", h.Licks)
	r.Get("/measures/{id}/midi", h.MeasureMIDI)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
