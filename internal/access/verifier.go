// package access decides whether an email may download a pack's tracks.
package access

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/packstore/internal/models"
)

// EntitlementSource is the read surface the verifier needs from the
// entitlement store: every row for an (email, pack) pair, expired or not.
type EntitlementSource interface {
	ListForPair(email, packID string) ([]*models.Entitlement, error)
}

// Reason explains why a Decision denied access.
type Reason int

const (
	Granted Reason = iota
	// DeniedNoEntitlement: no row exists for the (email, pack) pair at all.
	DeniedNoEntitlement
	// DeniedExpired: rows exist but every one of them has expired.
	DeniedExpired
	// DeniedLookupFailed: the entitlement store errored; ambiguous states
	// never grant access.
	DeniedLookupFailed
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Authorized bool
	Reason     Reason
	Err        error
}

// Verifier checks purchase entitlements against the entitlement store.
type Verifier struct {
	source EntitlementSource
	logger *log.Logger
	now    func() time.Time
}

// NewVerifier creates a Verifier reading from the given entitlement source.
func NewVerifier(source EntitlementSource, logger *log.Logger) *Verifier {
	return &Verifier{source: source, logger: logger, now: time.Now}
}

// SetClock overrides the verifier's clock. Test hook.
func (v *Verifier) SetClock(now func() time.Time) {
	v.now = now
}

// Authorize reports whether email holds a currently valid entitlement to
// packID.
//
// All candidate rows are fetched and scanned in memory: access is granted if
// ANY row has a nil expiry or an expiry strictly in the future. The expiry
// comparison must not move into the store: a greater-than-now filter at the
// database cannot express "null OR future" and silently drops permanent
// entitlements.
func (v *Verifier) Authorize(email, packID string) Decision {
	rows, err := v.source.ListForPair(email, packID)
	if err != nil {
		v.logger.Error("entitlement lookup failed", "email", email, "pack", packID, "err", err)
		return Decision{Authorized: false, Reason: DeniedLookupFailed, Err: err}
	}

	if len(rows) == 0 {
		return Decision{Authorized: false, Reason: DeniedNoEntitlement}
	}

	now := v.now()
	for _, ent := range rows {
		if ent.ValidAt(now) {
			return Decision{Authorized: true, Reason: Granted}
		}
	}

	return Decision{Authorized: false, Reason: DeniedExpired}
}

// IsAuthorized is the boolean form of [Verifier.Authorize].
func (v *Verifier) IsAuthorized(email, packID string) bool {
	return v.Authorize(email, packID).Authorized
}
