package access

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/shared"
)

// stubSource is an in-memory EntitlementSource keyed by email|pack
type stubSource struct {
	rows map[string][]*models.Entitlement
	err  error
}

func (s *stubSource) ListForPair(email, packID string) ([]*models.Entitlement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[email+"|"+packID], nil
}

func newVerifier(source *stubSource) *Verifier {
	return NewVerifier(source, shared.NewLogger(nil))
}

func entitlement(email, packID string, expiresAt *time.Time) *models.Entitlement {
	return models.NewEntitlement(0, email, packID, expiresAt)
}

func TestVerifierAuthorize(t *testing.T) {
	t.Run("PermanentGrants", func(t *testing.T) {
		source := &stubSource{rows: map[string][]*models.Entitlement{
			"buyer@example.com|vol-1": {entitlement("buyer@example.com", "vol-1", nil)},
		}}

		decision := newVerifier(source).Authorize("buyer@example.com", "vol-1")
		if !decision.Authorized {
			t.Errorf("permanent entitlement should grant access, got reason %v", decision.Reason)
		}
	})

	t.Run("FutureExpiryGrants", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour)
		source := &stubSource{rows: map[string][]*models.Entitlement{
			"buyer@example.com|vol-1": {entitlement("buyer@example.com", "vol-1", &expiry)},
		}}

		decision := newVerifier(source).Authorize("buyer@example.com", "vol-1")
		if !decision.Authorized {
			t.Errorf("unexpired entitlement should grant access, got reason %v", decision.Reason)
		}
	})

	t.Run("AnyValidRowWins", func(t *testing.T) {
		expired := time.Now().Add(-time.Hour)
		source := &stubSource{rows: map[string][]*models.Entitlement{
			"buyer@example.com|vol-1": {
				entitlement("buyer@example.com", "vol-1", &expired),
				entitlement("buyer@example.com", "vol-1", nil),
			},
		}}

		decision := newVerifier(source).Authorize("buyer@example.com", "vol-1")
		if !decision.Authorized {
			t.Error("one valid row among expired rows should grant access")
		}
	})

	t.Run("AllExpiredDenies", func(t *testing.T) {
		older := time.Now().Add(-48 * time.Hour)
		newer := time.Now().Add(-time.Minute)
		source := &stubSource{rows: map[string][]*models.Entitlement{
			"buyer@example.com|vol-1": {
				entitlement("buyer@example.com", "vol-1", &older),
				entitlement("buyer@example.com", "vol-1", &newer),
			},
		}}

		decision := newVerifier(source).Authorize("buyer@example.com", "vol-1")
		if decision.Authorized {
			t.Fatal("expired rows should not grant access")
		}
		if decision.Reason != DeniedExpired {
			t.Errorf("expected DeniedExpired, got %v", decision.Reason)
		}
	})

	t.Run("NoRowsDenies", func(t *testing.T) {
		source := &stubSource{rows: map[string][]*models.Entitlement{}}

		decision := newVerifier(source).Authorize("buyer@example.com", "vol-1")
		if decision.Authorized {
			t.Fatal("missing entitlement should not grant access")
		}
		if decision.Reason != DeniedNoEntitlement {
			t.Errorf("expected DeniedNoEntitlement, got %v", decision.Reason)
		}
	})

	t.Run("LookupFailureDenies", func(t *testing.T) {
		source := &stubSource{err: errors.New("connection refused")}

		decision := newVerifier(source).Authorize("buyer@example.com", "vol-1")
		if decision.Authorized {
			t.Fatal("store failure should never grant access")
		}
		if decision.Reason != DeniedLookupFailed {
			t.Errorf("expected DeniedLookupFailed, got %v", decision.Reason)
		}
		if decision.Err == nil {
			t.Error("decision should carry the lookup error")
		}
	})

	t.Run("ExpiryEvaluatedAgainstClock", func(t *testing.T) {
		expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		source := &stubSource{rows: map[string][]*models.Entitlement{
			"buyer@example.com|vol-1": {entitlement("buyer@example.com", "vol-1", &expiry)},
		}}

		verifier := newVerifier(source)

		verifier.SetClock(func() time.Time { return expiry.Add(-time.Second) })
		if !verifier.IsAuthorized("buyer@example.com", "vol-1") {
			t.Error("access should be granted one second before expiry")
		}

		verifier.SetClock(func() time.Time { return expiry })
		if verifier.IsAuthorized("buyer@example.com", "vol-1") {
			t.Error("access should be denied at the expiry instant")
		}
	})
}
