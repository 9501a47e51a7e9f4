package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"evite/models"
)

type uploadResponse struct {
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func sendJSONResponse(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// UploadImageHandler stores the multipart "file" field and answers with its
// path relative to the public web root.
func (s *Server) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	lang := s.Catalog.DetectLanguage(r)
	s.limitBody(w, r)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendJSONResponse(w, http.StatusRequestEntityTooLarge, uploadResponse{Error: s.Catalog.T(lang, "FileTooLarge")})
			return
		}
		sendJSONResponse(w, http.StatusBadRequest, uploadResponse{Error: "No file part"})
		return
	}
	defer file.Close()

	path, err := s.Uploads.Store(r.Context(), header.Filename, file)
	switch {
	case errors.Is(err, models.ErrNoFile):
		sendJSONResponse(w, http.StatusBadRequest, uploadResponse{Error: s.Catalog.T(lang, "NoFileSelected")})
	case errors.Is(err, models.ErrFileTooLarge):
		sendJSONResponse(w, http.StatusRequestEntityTooLarge, uploadResponse{Error: s.Catalog.T(lang, "FileTooLarge")})
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("upload_image")
		sendJSONResponse(w, http.StatusInternalServerError, uploadResponse{Error: s.Catalog.T(lang, "UploadFailed")})
	default:
		sendJSONResponse(w, http.StatusOK, uploadResponse{Filename: path})
	}
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check")
		sendJSONResponse(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Database: err.Error()})
		return
	}
	sendJSONResponse(w, http.StatusOK, healthResponse{Status: "ok", Database: "ok"})
}
