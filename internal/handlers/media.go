package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"watch-transcoder/internal/database"
	"watch-transcoder/internal/logging"
	"watch-transcoder/internal/quality"
)

// GetAvailableQualities handles GET /api/media/{mediaID}/qualities.
func (h *Handlers) GetAvailableQualities(w http.ResponseWriter, r *http.Request) {
	mediaID := mux.Vars(r)["mediaID"]

	qualities, err := h.svc.AvailableQualities(r.Context(), mediaID)
	if err != nil {
		logging.Error("list qualities for media %s: %v", mediaID, err)
		writeJSONError(w, "failed to list qualities", http.StatusInternalServerError)
		return
	}
	if qualities == nil {
		qualities = []string{}
	}

	writeJSON(w, map[string]interface{}{
		"mediaId":   mediaID,
		"qualities": qualities,
	})
}

// lookupRendition resolves the cached rendition for a media/quality pair
// from the request, writing the appropriate error response on failure.
func (h *Handlers) lookupRendition(w http.ResponseWriter, r *http.Request) *database.CachedRendition {
	mediaID := mux.Vars(r)["mediaID"]

	q := r.URL.Query().Get("quality")
	if q == "" {
		writeJSONError(w, "quality query parameter is required", http.StatusBadRequest)
		return nil
	}

	rendition, err := h.svc.CachedPath(r.Context(), mediaID, q)
	if err != nil {
		if errors.Is(err, quality.ErrInvalidQuality) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return nil
		}
		logging.Error("rendition lookup media=%s quality=%s: %v", mediaID, q, err)
		writeJSONError(w, "rendition lookup failed", http.StatusInternalServerError)
		return nil
	}
	if rendition == nil {
		writeJSONError(w, "no cached rendition", http.StatusNotFound)
		return nil
	}

	return rendition
}

// GetRendition handles GET /api/media/{mediaID}/rendition?quality=.
// It returns the cache entry (path, size, duration) without the payload.
func (h *Handlers) GetRendition(w http.ResponseWriter, r *http.Request) {
	rendition := h.lookupRendition(w, r)
	if rendition == nil {
		return
	}
	writeJSON(w, rendition)
}

// StreamRendition handles GET /api/media/{mediaID}/stream?quality=.
// It serves the cached rendition file with range support. The lookup
// refreshes the entry's last access time, which keeps an actively
// streamed rendition out of the janitor's reach for a full TTL.
func (h *Handlers) StreamRendition(w http.ResponseWriter, r *http.Request) {
	rendition := h.lookupRendition(w, r)
	if rendition == nil {
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, rendition.FilePath)
}
