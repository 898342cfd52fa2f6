package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/packstore/internal/access"
	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/repositories"
	"github.com/desertthunder/packstore/internal/shared"
	mock "github.com/desertthunder/packstore/internal/testing"
)

// testApp bundles the router with direct handles on its backing stores.
type testApp struct {
	router       *BasicRouter
	db           *sql.DB
	store        *mock.MockStore
	packs        *repositories.PackRepository
	tracks       *repositories.TrackRepository
	orders       *repositories.OrderRepository
	entitlements *repositories.EntitlementRepository
	subscribers  *repositories.SubscriberRepository
}

func setupApp(t *testing.T, gatewaySecret string) *testApp {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := shared.NewLogger(nil)
	app := &testApp{
		db:           db,
		store:        mock.NewMockStore("downloads"),
		packs:        repositories.NewPackRepository(db),
		tracks:       repositories.NewTrackRepository(db),
		orders:       repositories.NewOrderRepository(db),
		entitlements: repositories.NewEntitlementRepository(db),
		subscribers:  repositories.NewSubscriberRepository(db),
	}

	app.router = NewAppRouter(AppOptions{
		Packs:         app.packs,
		Tracks:        app.tracks,
		Orders:        app.orders,
		Entitlements:  app.entitlements,
		Subscribers:   app.subscribers,
		Verifier:      access.NewVerifier(app.entitlements, logger),
		Store:         app.store,
		GatewaySecret: gatewaySecret,
		Logger:        logger,
	})

	return app
}

// seedCatalog inserts a pack with one track and the backing stored object.
func (a *testApp) seedCatalog(t *testing.T, packID, trackTitle string) *models.Track {
	t.Helper()

	pack := models.NewPack(0, packID, "Pack "+packID, 500)
	if err := a.packs.Create(pack); err != nil {
		t.Fatalf("failed to seed pack: %v", err)
	}

	storagePath := packID + "/" + trackTitle + ".wav"
	track := models.NewTrack(0, packID, models.TrackAttrs{
		Title:       trackTitle,
		Format:      "WAV",
		BitDepth:    24,
		SampleRate:  44100,
		Size:        12,
		TrackOrder:  1,
		StoragePath: storagePath,
	})
	if err := a.tracks.Create(track); err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}

	a.store.Objects[storagePath] = []byte("RIFF....WAVE")
	return track
}

// grant inserts an entitlement row, nil expiry for permanent
func (a *testApp) grant(t *testing.T, email, packID string, expiresAt *time.Time) {
	t.Helper()

	ent := models.NewEntitlement(0, email, packID, expiresAt)
	if err := a.entitlements.Create(ent); err != nil {
		t.Fatalf("failed to grant entitlement: %v", err)
	}
}

func (a *testApp) request(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func gatewaySign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestDownloadsListing(t *testing.T) {
	t.Run("MissingEmailYieldsEmptyList", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodGet, "/downloads", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp downloadsResponse
		decodeJSON(t, rec, &resp)
		if len(resp.Packs) != 0 {
			t.Errorf("expected empty listing, got %d packs", len(resp.Packs))
		}
	})

	t.Run("MalformedEmailYieldsEmptyList", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodGet, "/downloads?email=not-an-email", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp downloadsResponse
		decodeJSON(t, rec, &resp)
		if len(resp.Packs) != 0 {
			t.Errorf("expected empty listing, got %d packs", len(resp.Packs))
		}
	})

	t.Run("BackendFailureYieldsEmptyList", func(t *testing.T) {
		app := setupApp(t, "")
		if _, err := app.db.Exec("DROP TABLE entitlements"); err != nil {
			t.Fatalf("failed to drop table: %v", err)
		}

		rec := app.request(t, http.MethodGet, "/downloads?email=buyer@example.com", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 despite backend failure, got %d", rec.Code)
		}

		var resp downloadsResponse
		decodeJSON(t, rec, &resp)
		if len(resp.Packs) != 0 {
			t.Errorf("expected empty listing, got %d packs", len(resp.Packs))
		}
	})

	t.Run("ListsEntitledPacks", func(t *testing.T) {
		app := setupApp(t, "")
		track := app.seedCatalog(t, "vol-1", "Kick")
		app.seedCatalog(t, "vol-2", "Snare")
		app.grant(t, "buyer@example.com", "vol-1", nil)

		rec := app.request(t, http.MethodGet, "/downloads?email=buyer@example.com", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp downloadsResponse
		decodeJSON(t, rec, &resp)
		if len(resp.Packs) != 1 {
			t.Fatalf("expected 1 entitled pack, got %d", len(resp.Packs))
		}
		if resp.Packs[0].PackID != "vol-1" {
			t.Errorf("expected vol-1, got %s", resp.Packs[0].PackID)
		}
		if len(resp.Packs[0].Tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(resp.Packs[0].Tracks))
		}

		entry := resp.Packs[0].Tracks[0]
		if entry.ID != track.ID() {
			t.Errorf("expected track id %s, got %s", track.ID(), entry.ID)
		}
		if !strings.Contains(entry.DownloadURL, "/download/track/"+track.ID()) {
			t.Errorf("download URL %q does not point at the track", entry.DownloadURL)
		}
		if !strings.Contains(entry.DownloadURL, "email=buyer%40example.com") {
			t.Errorf("download URL %q does not carry the escaped email", entry.DownloadURL)
		}
	})

	t.Run("ExpiredEntitlementExcluded", func(t *testing.T) {
		app := setupApp(t, "")
		app.seedCatalog(t, "vol-1", "Kick")

		expired := time.Now().Add(-time.Hour)
		app.grant(t, "buyer@example.com", "vol-1", &expired)

		rec := app.request(t, http.MethodGet, "/downloads?email=buyer@example.com", "")
		var resp downloadsResponse
		decodeJSON(t, rec, &resp)
		if len(resp.Packs) != 0 {
			t.Errorf("expired entitlement should not appear in listing, got %d packs", len(resp.Packs))
		}
	})

	t.Run("DuplicateRowsListedOnce", func(t *testing.T) {
		app := setupApp(t, "")
		app.seedCatalog(t, "vol-1", "Kick")
		app.grant(t, "buyer@example.com", "vol-1", nil)
		app.grant(t, "buyer@example.com", "vol-1", nil)

		rec := app.request(t, http.MethodGet, "/downloads?email=buyer@example.com", "")
		var resp downloadsResponse
		decodeJSON(t, rec, &resp)
		if len(resp.Packs) != 1 {
			t.Errorf("duplicate entitlement rows should list the pack once, got %d", len(resp.Packs))
		}
	})
}

func TestPackDownloads(t *testing.T) {
	t.Run("MissingEmail", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodGet, "/downloads/vol-1", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("NotEntitled", func(t *testing.T) {
		app := setupApp(t, "")
		app.seedCatalog(t, "vol-1", "Kick")

		rec := app.request(t, http.MethodGet, "/downloads/vol-1?email=buyer@example.com", "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}

		var body errorBody
		decodeJSON(t, rec, &body)
		if body.Reason != "none" {
			t.Errorf("expected reason none, got %q", body.Reason)
		}
	})

	t.Run("ExpiredEntitlement", func(t *testing.T) {
		app := setupApp(t, "")
		app.seedCatalog(t, "vol-1", "Kick")

		expired := time.Now().Add(-time.Hour)
		app.grant(t, "buyer@example.com", "vol-1", &expired)

		rec := app.request(t, http.MethodGet, "/downloads/vol-1?email=buyer@example.com", "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}

		var body errorBody
		decodeJSON(t, rec, &body)
		if body.Reason != "expired" {
			t.Errorf("expected reason expired, got %q", body.Reason)
		}
	})

	t.Run("Entitled", func(t *testing.T) {
		app := setupApp(t, "")
		app.seedCatalog(t, "vol-1", "Kick")
		app.grant(t, "buyer@example.com", "vol-1", nil)

		rec := app.request(t, http.MethodGet, "/downloads/vol-1?email=buyer@example.com", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body packJSON
		decodeJSON(t, rec, &body)
		if body.PackID != "vol-1" || len(body.Tracks) != 1 {
			t.Errorf("unexpected pack body: %+v", body)
		}
	})
}

func TestTrackDownload(t *testing.T) {
	t.Run("MissingEmail", func(t *testing.T) {
		app := setupApp(t, "")
		track := app.seedCatalog(t, "vol-1", "Kick")

		rec := app.request(t, http.MethodGet, "/download/track/"+track.ID(), "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("UnknownTrack", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodGet, "/download/track/missing?email=buyer@example.com", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}

		var body errorBody
		decodeJSON(t, rec, &body)
		if body.Error != "Track not found" {
			t.Errorf("unexpected error body: %+v", body)
		}
	})

	t.Run("NotEntitled", func(t *testing.T) {
		app := setupApp(t, "")
		track := app.seedCatalog(t, "vol-1", "Kick")

		rec := app.request(t, http.MethodGet, "/download/track/"+track.ID()+"?email=buyer@example.com", "")
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("Success", func(t *testing.T) {
		app := setupApp(t, "")
		track := app.seedCatalog(t, "vol-1", "Kick")
		app.grant(t, "buyer@example.com", "vol-1", nil)

		rec := app.request(t, http.MethodGet, "/download/track/"+track.ID()+"?email=buyer@example.com", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		if got := rec.Header().Get("Content-Type"); got != "audio/wav" {
			t.Errorf("expected audio/wav, got %q", got)
		}
		if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Kick.wav"` {
			t.Errorf("unexpected disposition %q", got)
		}
		if got := rec.Header().Get("Content-Length"); got != "12" {
			t.Errorf("expected declared size 12, got %q", got)
		}
		if rec.Body.String() != "RIFF....WAVE" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})

	t.Run("MissingObjectDiagnostics", func(t *testing.T) {
		app := setupApp(t, "")
		track := app.seedCatalog(t, "vol-1", "Kick")
		app.grant(t, "buyer@example.com", "vol-1", nil)
		delete(app.store.Objects, track.StoragePath())

		rec := app.request(t, http.MethodGet, "/download/track/"+track.ID()+"?email=buyer@example.com", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}

		var body errorBody
		decodeJSON(t, rec, &body)
		if body.Bucket != "downloads" || body.Path != track.StoragePath() {
			t.Errorf("expected bucket/path diagnostics, got %+v", body)
		}
	})
}

func TestOrders(t *testing.T) {
	t.Run("RecordsOrdersAndGrants", func(t *testing.T) {
		app := setupApp(t, "")

		body := `{"email":"buyer@example.com","packIds":["vol-1","vol-2","vol-3"],"gatewayOrderId":"order_1","gatewayPaymentId":"pay_1","totalAmount":1000}`
		rec := app.request(t, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp orderResponse
		decodeJSON(t, rec, &resp)
		if !resp.Success || resp.OrderCount != 3 || resp.Degraded {
			t.Errorf("unexpected response %+v", resp)
		}

		orders, err := app.orders.List(map[string]any{"email": "buyer@example.com"})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(orders) != 3 {
			t.Fatalf("expected 3 order rows, got %d", len(orders))
		}
		for _, o := range orders {
			if o.Amount() != 333 {
				t.Errorf("expected amount 333 per pack, got %d", o.Amount())
			}
			if o.Status() != models.StatusCompleted {
				t.Errorf("expected completed status, got %q", o.Status())
			}
		}

		ents, err := app.entitlements.List(map[string]any{"email": "buyer@example.com"})
		if err != nil {
			t.Fatalf("failed to list entitlements: %v", err)
		}
		if len(ents) != 3 {
			t.Fatalf("expected 3 entitlement rows, got %d", len(ents))
		}
		for _, ent := range ents {
			if !ent.Permanent() {
				t.Errorf("purchase grants should be permanent, got expiry %v", ent.ExpiresAt())
			}
		}
	})

	t.Run("EmptyPackList", func(t *testing.T) {
		app := setupApp(t, "")

		body := `{"email":"buyer@example.com","packIds":[],"gatewayOrderId":"order_1","gatewayPaymentId":"pay_1","totalAmount":1000}`
		rec := app.request(t, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}

		orders, err := app.orders.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(orders) != 0 {
			t.Errorf("no rows should be written for an empty pack list, got %d", len(orders))
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		app := setupApp(t, "")

		body := `{"email":"buyer@example.com","packIds":["vol-1"],"totalAmount":1000}`
		rec := app.request(t, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodPost, "/orders", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("ValidSignature", func(t *testing.T) {
		app := setupApp(t, "topsecret")

		sig := gatewaySign("topsecret", "order_1", "pay_1")
		body := `{"email":"buyer@example.com","packIds":["vol-1"],"gatewayOrderId":"order_1","gatewayPaymentId":"pay_1","totalAmount":500,"gatewaySignature":"` + sig + `"}`
		rec := app.request(t, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for valid signature, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		app := setupApp(t, "topsecret")

		body := `{"email":"buyer@example.com","packIds":["vol-1"],"gatewayOrderId":"order_1","gatewayPaymentId":"pay_1","totalAmount":500,"gatewaySignature":"deadbeef"}`
		rec := app.request(t, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
		}

		orders, err := app.orders.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(orders) != 0 {
			t.Errorf("no rows should be written for a rejected signature, got %d", len(orders))
		}
	})

	t.Run("GrantFailureDegrades", func(t *testing.T) {
		app := setupApp(t, "")
		if _, err := app.db.Exec("DROP TABLE entitlements"); err != nil {
			t.Fatalf("failed to drop table: %v", err)
		}

		body := `{"email":"buyer@example.com","packIds":["vol-1"],"gatewayOrderId":"order_1","gatewayPaymentId":"pay_1","totalAmount":500}`
		rec := app.request(t, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("order recording should survive grant failure, got %d", rec.Code)
		}

		var resp orderResponse
		decodeJSON(t, rec, &resp)
		if !resp.Success || !resp.Degraded {
			t.Errorf("expected degraded success, got %+v", resp)
		}

		orders, err := app.orders.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list orders: %v", err)
		}
		if len(orders) != 1 {
			t.Errorf("order row should persist despite grant failure, got %d", len(orders))
		}
	})
}

func TestStock(t *testing.T) {
	t.Run("Read", func(t *testing.T) {
		app := setupApp(t, "")
		app.seedCatalog(t, "vol-1", "Kick")

		rec := app.request(t, http.MethodGet, "/stock?packId=vol-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body map[string]int
		decodeJSON(t, rec, &body)
		if body["left"] != 500 {
			t.Errorf("expected 500 left, got %d", body["left"])
		}
	})

	t.Run("FallbackOnMissingPack", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodGet, "/stock?packId=nope", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with fallback, got %d", rec.Code)
		}

		var body map[string]int
		decodeJSON(t, rec, &body)
		if body["left"] != fallbackStock {
			t.Errorf("expected fallback %d, got %d", fallbackStock, body["left"])
		}
	})

	t.Run("Adjust", func(t *testing.T) {
		app := setupApp(t, "")
		app.seedCatalog(t, "vol-1", "Kick")

		rec := app.request(t, http.MethodPost, "/stock", `{"packId":"vol-1","delta":-2}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body map[string]any
		decodeJSON(t, rec, &body)
		if body["ok"] != true || body["left"] != float64(498) {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("AdjustMissingPack", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodPost, "/stock", `{"packId":"nope","delta":-1}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("AdjustBadBody", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodPost, "/stock", `{"packId":"vol-1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 without delta, got %d", rec.Code)
		}
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("Signup", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodPost, "/subscribe", `{"email":"fan@example.com"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		count, err := app.subscribers.Count()
		if err != nil {
			t.Fatalf("failed to count subscribers: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 subscriber, got %d", count)
		}
	})

	t.Run("DuplicateSignup", func(t *testing.T) {
		app := setupApp(t, "")

		for i := 0; i < 2; i++ {
			rec := app.request(t, http.MethodPost, "/subscribe", `{"email":"fan@example.com"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("duplicate signup should succeed, got %d", rec.Code)
			}
		}
	})

	t.Run("MissingEmail", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodPost, "/subscribe", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		app := setupApp(t, "")

		rec := app.request(t, http.MethodGet, "/subscribe", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}
