package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"watch-transcoder/internal/logging"
)

type purgeRequest struct {
	// MaxAge is a Go duration string, e.g. "24h". Entries not accessed
	// within this window are evicted.
	MaxAge string `json:"maxAge"`
}

// PurgeCache handles POST /api/cache/purge: a manual trigger of the
// janitor's eviction logic with a caller-supplied TTL.
func (h *Handlers) PurgeCache(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	maxAge, err := time.ParseDuration(req.MaxAge)
	if err != nil || maxAge < 0 {
		writeJSONError(w, "maxAge must be a non-negative duration", http.StatusBadRequest)
		return
	}

	evicted, err := h.janitor.PurgeOlderThan(r.Context(), maxAge)
	if err != nil {
		logging.Error("manual cache purge: %v", err)
		writeJSONError(w, "cache purge failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]int{"evicted": evicted})
}

type pruneRequest struct {
	// OlderThan is a Go duration string; terminal job records created
	// before now-olderThan are removed.
	OlderThan string `json:"olderThan"`
}

// PruneJobs handles POST /api/jobs/prune: housekeeping of old terminal
// job records. Never triggered internally.
func (h *Handlers) PruneJobs(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	olderThan, err := time.ParseDuration(req.OlderThan)
	if err != nil || olderThan < 0 {
		writeJSONError(w, "olderThan must be a non-negative duration", http.StatusBadRequest)
		return
	}

	pruned, err := h.db.PruneJobs(r.Context(), olderThan)
	if err != nil {
		logging.Error("prune jobs: %v", err)
		writeJSONError(w, "prune failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]int64{"pruned": pruned})
}
