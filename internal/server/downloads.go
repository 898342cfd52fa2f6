package server

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/packstore/internal/access"
	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/repositories"
	"github.com/desertthunder/packstore/internal/shared"
)

// nowFunc is the listing clock. Test hook.
var nowFunc = time.Now

// trackJSON is the listing representation of a purchasable track.
type trackJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Format      string `json:"format"`
	BitDepth    int    `json:"bitDepth"`
	SampleRate  int    `json:"sampleRate"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

// packJSON groups a pack's tracks in the listing response.
type packJSON struct {
	PackID string      `json:"packId"`
	Tracks []trackJSON `json:"tracks"`
}

// downloadsResponse is the body of GET /downloads.
type downloadsResponse struct {
	Packs []packJSON `json:"packs"`
}

// DownloadsHandler serves the entitled-downloads listing.
//
//	GET /downloads?email=           → every pack the email is entitled to
//	GET /downloads/{packId}?email=  → one pack's tracks, 403 if not entitled
//
// The bare listing degrades to an empty result on missing input or backend
// failure: absence of input yields absence of output, not a hard failure.
// The per-pack route keeps the original strict 400/403 contract.
type DownloadsHandler struct {
	entitlements *repositories.EntitlementRepository
	tracks       *repositories.TrackRepository
	verifier     *access.Verifier
	logger       *log.Logger
}

// NewDownloadsHandler creates the listing handler.
func NewDownloadsHandler(ents *repositories.EntitlementRepository, tracks *repositories.TrackRepository, verifier *access.Verifier, logger *log.Logger) *DownloadsHandler {
	return &DownloadsHandler{entitlements: ents, tracks: tracks, verifier: verifier, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *DownloadsHandler) Routes() []string {
	return []string{"/downloads", "/downloads/{packId}"}
}

// ServeHTTP dispatches between the full listing and the per-pack listing.
func (h *DownloadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if packID := r.PathValue("packId"); packID != "" {
		h.servePack(w, r, packID)
		return
	}

	h.serveAll(w, r)
}

// serveAll lists every entitled pack for the email, or an empty list.
func (h *DownloadsHandler) serveAll(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	empty := downloadsResponse{Packs: []packJSON{}}

	if !shared.PlausibleEmail(email) {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	ents, err := h.entitlements.List(map[string]any{"email": email})
	if err != nil {
		h.logger.Error("failed to query entitlements", "email", email, "err", err)
		writeJSON(w, http.StatusOK, empty)
		return
	}

	packIDs := validPackIDs(ents)
	if len(packIDs) == 0 {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	tracks, err := h.tracks.ListByPacks(packIDs)
	if err != nil {
		h.logger.Error("failed to query tracks", "email", email, "err", err)
		writeJSON(w, http.StatusOK, empty)
		return
	}

	resp := downloadsResponse{Packs: groupByPack(packIDs, tracks, email)}
	writeJSON(w, http.StatusOK, resp)
}

// servePack lists one pack's tracks after re-checking the entitlement.
func (h *DownloadsHandler) servePack(w http.ResponseWriter, r *http.Request, packID string) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Email required"})
		return
	}

	decision := h.verifier.Authorize(email, packID)
	if !decision.Authorized {
		writeError(w, http.StatusForbidden, errorBody{Error: "Access denied", Reason: denialReason(decision)})
		return
	}

	tracks, err := h.tracks.List(map[string]any{"pack_id": packID})
	if err != nil {
		h.logger.Error("failed to query tracks", "pack", packID, "err", err)
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Database error"})
		return
	}

	body := packJSON{PackID: packID, Tracks: make([]trackJSON, 0, len(tracks))}
	for _, t := range tracks {
		body.Tracks = append(body.Tracks, toTrackJSON(t, email))
	}

	writeJSON(w, http.StatusOK, body)
}

// validPackIDs collects the distinct pack ids of currently valid entitlement
// rows, preserving first-seen order. Validity is evaluated in memory, row by
// row, per the "any valid row wins" policy.
func validPackIDs(ents []*models.Entitlement) []string {
	seen := map[string]bool{}
	var ids []string
	for _, ent := range ents {
		if !ent.ValidAt(nowFunc()) {
			continue
		}
		if !seen[ent.PackID()] {
			seen[ent.PackID()] = true
			ids = append(ids, ent.PackID())
		}
	}
	return ids
}

// groupByPack buckets tracks under their pack id, keeping the pack order of
// the entitlement scan.
func groupByPack(packIDs []string, tracks []*models.Track, email string) []packJSON {
	byPack := map[string][]trackJSON{}
	for _, t := range tracks {
		byPack[t.PackID()] = append(byPack[t.PackID()], toTrackJSON(t, email))
	}

	packs := make([]packJSON, 0, len(packIDs))
	for _, id := range packIDs {
		group := byPack[id]
		if group == nil {
			group = []trackJSON{}
		}
		packs = append(packs, packJSON{PackID: id, Tracks: group})
	}
	return packs
}

// toTrackJSON builds the listing entry, embedding the download URL.
//
// The only authorization carried by the URL is the email itself; the
// fulfillment handler re-verifies the entitlement on every request.
func toTrackJSON(t *models.Track, email string) trackJSON {
	return trackJSON{
		ID:          t.ID(),
		Title:       t.Title(),
		Format:      t.Format(),
		BitDepth:    t.BitDepth(),
		SampleRate:  t.SampleRate(),
		Size:        t.Size(),
		DownloadURL: fmt.Sprintf("/download/track/%s?email=%s", t.ID(), url.QueryEscape(email)),
	}
}

// denialReason maps an access decision to the reason string in 403 bodies.
func denialReason(d access.Decision) string {
	switch d.Reason {
	case access.DeniedExpired:
		return "expired"
	case access.DeniedNoEntitlement:
		return "none"
	default:
		return "error"
	}
}
