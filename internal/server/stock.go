package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/packstore/internal/repositories"
	"github.com/desertthunder/packstore/internal/shared"
)

// fallbackStock is returned when the pack or the database is unavailable:
// the storefront shows a number rather than an error.
const fallbackStock = 996

// defaultStockPack is the pack queried when none is specified.
const defaultStockPack = "vol-1"

// stockAdjustRequest is the body of POST /stock.
type stockAdjustRequest struct {
	PackID string `json:"packId"`
	Delta  *int   `json:"delta"`
}

// StockHandler exposes the per-pack stock counter.
//
//	GET  /stock?packId=   → {"left": n}, fallback value on any error
//	POST /stock           → {"ok": true, "left": n} after applying delta
type StockHandler struct {
	packs  *repositories.PackRepository
	logger *log.Logger
}

// NewStockHandler creates the stock counter handler.
func NewStockHandler(packs *repositories.PackRepository, logger *log.Logger) *StockHandler {
	return &StockHandler{packs: packs, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *StockHandler) Routes() []string {
	return []string{"/stock"}
}

// ServeHTTP dispatches between reading and adjusting the counter.
func (h *StockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveRead(w, r)
	case http.MethodPost:
		h.serveAdjust(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StockHandler) serveRead(w http.ResponseWriter, r *http.Request) {
	packID := r.URL.Query().Get("packId")
	if packID == "" {
		packID = defaultStockPack
	}

	pack, err := h.packs.Get(packID)
	if err != nil {
		h.logger.Error("failed to fetch stock", "pack", packID, "err", err)
		writeJSON(w, http.StatusOK, map[string]int{"left": fallbackStock})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"left": pack.StockLeft()})
}

func (h *StockHandler) serveAdjust(w http.ResponseWriter, r *http.Request) {
	var req stockAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PackID == "" || req.Delta == nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"ok": false})
		return
	}

	left, err := h.packs.AdjustStock(req.PackID, *req.Delta)
	if err != nil {
		if errors.Is(err, shared.ErrPackNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "Pack not found"})
			return
		}
		h.logger.Error("failed to adjust stock", "pack", req.PackID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Database error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "left": left})
}
