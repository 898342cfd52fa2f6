package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/packstore/internal/access"
	"github.com/desertthunder/packstore/internal/repositories"
	"github.com/desertthunder/packstore/internal/shared"
	"github.com/desertthunder/packstore/internal/storage"
)

// TrackDownloadHandler streams a purchased track from the object store.
//
//	GET /download/track/{id}?email=
//
// Every request re-checks the entitlement before touching storage; the email
// in the URL is a claim, not a capability. This handler never mutates
// entitlement or order state.
type TrackDownloadHandler struct {
	tracks   *repositories.TrackRepository
	verifier *access.Verifier
	store    storage.Store
	logger   *log.Logger
}

// NewTrackDownloadHandler creates the fulfillment handler.
func NewTrackDownloadHandler(tracks *repositories.TrackRepository, verifier *access.Verifier, store storage.Store, logger *log.Logger) *TrackDownloadHandler {
	return &TrackDownloadHandler{tracks: tracks, verifier: verifier, store: store, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *TrackDownloadHandler) Routes() []string {
	return []string{"/download/track/{id}"}
}

// ServeHTTP validates, authorizes, fetches and streams the track.
//
// Failure mapping, in order: missing email → 400, unknown track → 404,
// no valid entitlement → 403, missing stored object → 404 with bucket/path
// diagnostics, store failure → 500.
func (h *TrackDownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Email required"})
		return
	}

	trackID := r.PathValue("id")

	track, err := h.tracks.Get(trackID)
	if err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, errorBody{Error: "Track not found"})
			return
		}
		h.logger.Error("track lookup failed", "track", trackID, "err", err)
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Database error"})
		return
	}

	decision := h.verifier.Authorize(email, track.PackID())
	if !decision.Authorized {
		writeError(w, http.StatusForbidden, errorBody{Error: "Access denied", Reason: denialReason(decision)})
		return
	}

	data, err := h.store.Download(r.Context(), track.StoragePath())
	if err != nil {
		if errors.Is(err, shared.ErrFileNotFound) {
			h.logger.Error("stored object missing", "bucket", h.store.Bucket(), "path", track.StoragePath(), "track", trackID)
			writeError(w, http.StatusNotFound, errorBody{
				Error:  "File not found",
				Bucket: h.store.Bucket(),
				Path:   track.StoragePath(),
			})
			return
		}
		h.logger.Error("object store read failed", "bucket", h.store.Bucket(), "path", track.StoragePath(), "err", err)
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Storage error"})
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", track.Filename()))
	w.Header().Set("Content-Length", strconv.FormatInt(track.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		h.logger.Warn("client disconnected mid-download", "track", trackID, "err", err)
	}
}
