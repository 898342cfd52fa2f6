package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/packstore/internal/repositories"
)

// subscribeRequest is the body of POST /subscribe.
type subscribeRequest struct {
	Email string `json:"email"`
}

// SubscribeHandler records mailing-list signups. Duplicate signups succeed
// silently.
type SubscribeHandler struct {
	subscribers *repositories.SubscriberRepository
	logger      *log.Logger
}

// NewSubscribeHandler creates the mailing-list handler.
func NewSubscribeHandler(subs *repositories.SubscriberRepository, logger *log.Logger) *SubscribeHandler {
	return &SubscribeHandler{subscribers: subs, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *SubscribeHandler) Routes() []string {
	return []string{"/subscribe"}
}

// ServeHTTP inserts the signup, suppressing duplicates.
func (h *SubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Email required"})
		return
	}

	if err := h.subscribers.Subscribe(req.Email); err != nil {
		h.logger.Error("failed to record signup", "email", req.Email, "err", err)
		writeError(w, http.StatusInternalServerError, errorBody{Error: "Database error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
