package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/repositories"
)

// orderRequest is the body of POST /orders.
type orderRequest struct {
	Email            string   `json:"email"`
	PackIDs          []string `json:"packIds"`
	GatewayOrderID   string   `json:"gatewayOrderId"`
	GatewayPaymentID string   `json:"gatewayPaymentId"`
	TotalAmount      int64    `json:"totalAmount"`
	GatewaySignature string   `json:"gatewaySignature"`
}

// orderResponse is the success body of POST /orders.
type orderResponse struct {
	Success    bool `json:"success"`
	OrderCount int  `json:"orderCount"`
	Degraded   bool `json:"degraded,omitempty"`
}

// OrdersHandler records completed purchases.
//
// One Order row is written per purchased pack, all sharing the gateway
// identifiers; the per-pack amount is the integer division of the total, and
// the remainder is dropped (accepted rounding loss). Entitlement grants are
// written afterwards, best-effort: a failed grant is logged and reported as
// degraded but never rolled back against the order rows. The financial
// record survives a transient fault on the access-grant side.
type OrdersHandler struct {
	orders        *repositories.OrderRepository
	entitlements  *repositories.EntitlementRepository
	gatewaySecret string
	logger        *log.Logger
}

// NewOrdersHandler creates the order recording handler. gatewaySecret is the
// HMAC key for signature verification; when empty, verification is skipped
// (development only) and every skip is logged.
func NewOrdersHandler(orders *repositories.OrderRepository, ents *repositories.EntitlementRepository, gatewaySecret string, logger *log.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, entitlements: ents, gatewaySecret: gatewaySecret, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *OrdersHandler) Routes() []string {
	return []string{"/orders"}
}

// ServeHTTP validates the purchase claim, verifies the gateway signature and
// writes order + entitlement rows.
func (h *OrdersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}

	if req.Email == "" || req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.TotalAmount <= 0 {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Missing required fields"})
		return
	}

	if len(req.PackIDs) == 0 {
		writeError(w, http.StatusBadRequest, errorBody{Error: "packIds must be a non-empty array"})
		return
	}

	if !h.verifySignature(req) {
		writeError(w, http.StatusBadRequest, errorBody{Error: "Invalid gateway signature"})
		return
	}

	// Integer division; the remainder is dropped, not redistributed.
	amountPerPack := req.TotalAmount / int64(len(req.PackIDs))

	for _, packID := range req.PackIDs {
		order := models.NewOrder(0, req.Email, packID, req.GatewayOrderID, req.GatewayPaymentID, amountPerPack)
		if err := h.orders.Create(order); err != nil {
			h.logger.Error("failed to store order", "email", req.Email, "pack", packID, "err", err)
			writeError(w, http.StatusInternalServerError, errorBody{Error: "Failed to store orders"})
			return
		}
	}

	// Permanent grants, best-effort. Never fail the order for these.
	degraded := false
	for _, packID := range req.PackIDs {
		ent := models.NewEntitlement(0, req.Email, packID, nil)
		if err := h.entitlements.Create(ent); err != nil {
			h.logger.Error("failed to create entitlement", "email", req.Email, "pack", packID, "err", err)
			degraded = true
		}
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Success:    true,
		OrderCount: len(req.PackIDs),
		Degraded:   degraded,
	})
}

// verifySignature recomputes the gateway's HMAC-SHA256 over
// "orderId|paymentId" and compares it to the caller's signature. Recording
// trusts the caller's claim of payment success only after this check; with no
// configured secret the check is skipped and logged.
func (h *OrdersHandler) verifySignature(req orderRequest) bool {
	if h.gatewaySecret == "" {
		h.logger.Warn("gateway secret not configured, skipping signature verification", "order", req.GatewayOrderID)
		return true
	}

	mac := hmac.New(sha256.New, []byte(h.gatewaySecret))
	mac.Write([]byte(req.GatewayOrderID + "|" + req.GatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(req.GatewaySignature))
}
