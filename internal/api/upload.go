package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/starford/lickdex/internal/ingest"
	"github.com/starford/lickdex/internal/storage"
)

const maxUploadBytes = 10 << 20 // 10 MB

// tabUpload is a tab file received as multipart/form-data.
type tabUpload struct {
	filename string
	data     []byte
	tracks   []int
}

// readTabUpload reads the "file" field and the optional comma-separated
// "tracks" field. On failure it writes the response and returns nil.
func readTabUpload(w http.ResponseWriter, r *http.Request) *tabUpload {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return nil
	}
	defer file.Close()

	name := filepath.Base(filepath.Clean(header.Filename))
	if !storage.IsTabFile(name) {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported file type: "+name))
		return nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return nil
	}

	tracks, err := ingest.ParseTracks(r.FormValue("tracks"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return nil
	}
	return &tabUpload{filename: name, data: data, tracks: tracks}
}

// Upload handles POST /api/upload.
//
//	@Summary		Ingest a tab file
//	@Tags			songs
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Tab document (.yaml, .yml, .tab)"
//	@Param			tracks	formData	string	false	"Comma-separated track indexes; all guitar tracks when empty"
//	@Success		201		{object}	models.Song
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	up := readTabUpload(w, r)
	if up == nil {
		return
	}
	song, err := h.svc.Ingest(r.Context(), up.filename, up.data, up.tracks)
	if err != nil {
		writeError(w, err, "upload")
		return
	}
	if h.notify != nil {
		h.notify(ingest.EventIngested, song.ID)
	}
	writeJSON(w, http.StatusCreated, song)
}

// TabInfo handles POST /api/tabinfo.
//
//	@Summary		List the guitar tracks of a tab file without ingesting it
//	@Tags			songs
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Tab document"
//	@Success		200		{object}	TabInfoResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tabinfo [post]
func (h *Handler) TabInfo(w http.ResponseWriter, r *http.Request) {
	up := readTabUpload(w, r)
	if up == nil {
		return
	}
	tracks, err := h.svc.TabInfo(r.Context(), up.data)
	if err != nil {
		writeError(w, err, "tabinfo")
		return
	}
	writeJSON(w, http.StatusOK, TabInfoResponse{Tracks: tracks})
}

// Analyze handles POST /api/analyze. Nothing is stored.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	up := readTabUpload(w, r)
	if up == nil {
		return
	}
	tracks, err := h.svc.Analyze(r.Context(), up.data, up.tracks)
	if err != nil {
		writeError(w, err, "analyze")
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{Tracks: tracks})
}
