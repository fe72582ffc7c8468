package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"watch-transcoder/internal/database"
	"watch-transcoder/internal/logging"
	"watch-transcoder/internal/quality"
)

type submitRequest struct {
	MediaID   string `json:"mediaId"`
	InputPath string `json:"inputPath"`
	Quality   string `json:"quality"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

// SubmitTranscode handles POST /api/transcode. It returns a job id
// immediately; callers poll the status endpoint for the outcome.
func (h *Handlers) SubmitTranscode(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.MediaID == "" || req.InputPath == "" || req.Quality == "" {
		writeJSONError(w, "mediaId, inputPath and quality are required", http.StatusBadRequest)
		return
	}

	jobID, err := h.svc.Submit(r.Context(), req.MediaID, req.InputPath, req.Quality)
	if err != nil {
		if errors.Is(err, quality.ErrInvalidQuality) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logging.Error("submit transcode: %v", err)
		writeJSONError(w, "failed to submit transcode", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(submitResponse{JobID: jobID}); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// GetTranscodeStatus handles GET /api/transcode/{jobID}.
func (h *Handlers) GetTranscodeStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	job, err := h.svc.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			writeJSONError(w, "job not found", http.StatusNotFound)
			return
		}
		logging.Error("get job status: %v", err)
		writeJSONError(w, "failed to load job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, job)
}
