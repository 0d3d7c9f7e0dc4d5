package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parkgate/internal/gateway"
	httpserver "parkgate/internal/http"
	"parkgate/internal/models"
	"parkgate/internal/store"
)

// parkingAPI is a stand-in for the parking backend the portal consumes.
type parkingAPI struct {
	session     *models.Session
	scanBody    map[string]interface{}
	checkoutURL string
}

func (p *parkingAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		if p.session == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(p.session)
	})
	mux.HandleFunc("/scans/exit", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(p.scanBody)
	})
	mux.HandleFunc("/payments/checkout", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"checkout_url": p.checkoutURL})
	})
	return mux
}

type portalFixture struct {
	api    *parkingAPI
	store  *store.Memory
	router http.Handler
}

func newPortalFixture(t *testing.T, api *parkingAPI) *portalFixture {
	t.Helper()
	backend := httptest.NewServer(api.handler())
	t.Cleanup(backend.Close)

	client := gateway.NewClient(gateway.Options{
		BaseURL: backend.URL,
		HTTP:    backend.Client(),
		GateID:  "web_portal",
		Source:  "driver_portal",
	})
	slot := store.NewMemory()

	h := NewPortalHandler(PortalHandlerOptions{
		Gateway:       client,
		Store:         slot,
		PollAttempts:  2,
		PollInterval:  time.Millisecond,
		DefaultRegion: "BG",
	})
	router := httpserver.NewRouter(httpserver.Routes{
		Portal:       h.HandlePortal,
		Scan:         h.HandleScan,
		Checkout:     h.HandleCheckout,
		Status:       h.HandleStatus,
		ReceiptEmail: h.HandleReceiptEmail,
		Health:       NewHealthHandler(),
	})
	return &portalFixture{api: api, store: slot, router: router}
}

func (f *portalFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: scopeCookie, Value: "tab1"})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return out
}

func TestHandlePortal_PaidSessionRendersReceipt(t *testing.T) {
	entered := time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC)
	exited := entered.Add(95 * time.Minute)
	f := newPortalFixture(t, &parkingAPI{
		session: &models.Session{
			ID:            42,
			Status:        models.SessionPaid,
			StartedAt:     &entered,
			EndedAt:       &exited,
			AmountCharged: 500,
		},
	})

	rec := f.do(http.MethodGet, "/portal?session_id=42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	state := decodeState(t, rec)
	if state["step"] != "receipt" {
		t.Fatalf("step = %v, want receipt", state["step"])
	}
	if state["amount_paid"] != "5.00 €" {
		t.Errorf("amount_paid = %v", state["amount_paid"])
	}
	if state["canonical_url"] != "/portal?session_id=42" {
		t.Errorf("canonical_url = %v", state["canonical_url"])
	}
}

func TestHandlePortal_FreshLoadStartsAtLookup(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{})

	rec := f.do(http.MethodGet, "/portal", "")
	state := decodeState(t, rec)
	if state["step"] != "lookup" {
		t.Fatalf("step = %v, want lookup", state["step"])
	}
}

func TestHandleScan_AwaitingPaymentRendersSummary(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{
		scanBody: map[string]interface{}{
			"status":           "awaiting_payment",
			"session_id":       42,
			"amount_cents":     500,
			"currency":         "EUR",
			"minutes_billable": 95,
		},
		session: &models.Session{ID: 42, Status: models.SessionAwaitingPayment},
	})

	rec := f.do(http.MethodPost, "/portal/scan", `{"plate_text":"NN18267"}`)
	state := decodeState(t, rec)
	if state["step"] != "summary" {
		t.Fatalf("step = %v, want summary", state["step"])
	}
	if state["total_due"] != "5.00 €" {
		t.Errorf("total_due = %v", state["total_due"])
	}
	if state["session_id"] != "42" {
		t.Errorf("session_id = %v", state["session_id"])
	}

	// the slot must survive the upcoming navigation
	if stored, _, _ := f.store.Get(context.Background(), "tab1"); stored != "42" {
		t.Errorf("stored slot = %q, want 42", stored)
	}
}

func TestHandleScan_ValidationNotice(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{})

	rec := f.do(http.MethodPost, "/portal/scan", `{"plate_text":"A1"}`)
	state := decodeState(t, rec)
	if state["step"] != "lookup" {
		t.Fatalf("step = %v, want lookup", state["step"])
	}
	if notice, _ := state["notice"].(string); notice == "" {
		t.Error("expected a visitor-facing notice")
	}
}

func TestHandleCheckout_RedirectsAndPersistsSlot(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{
		checkoutURL: "https://pay.example.com/cs_test_123",
	})

	rec := f.do(http.MethodPost, "/portal/checkout", `{"session_id":"42"}`)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://pay.example.com/cs_test_123" {
		t.Errorf("Location = %q", loc)
	}
	if stored, _, _ := f.store.Get(context.Background(), "tab1"); stored != "42" {
		t.Errorf("stored slot = %q, want 42 persisted before the redirect", stored)
	}
}

func TestHandleCheckout_MissingURLStaysOnSummary(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{
		checkoutURL: "",
		session:     &models.Session{ID: 42, Status: models.SessionAwaitingPayment},
	})

	rec := f.do(http.MethodPost, "/portal/checkout", `{"session_id":"42"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without a redirect", rec.Code)
	}
	state := decodeState(t, rec)
	if state["step"] != "summary" {
		t.Errorf("step = %v, want summary", state["step"])
	}
	if notice, _ := state["notice"].(string); notice == "" {
		t.Error("expected a notice about the failed checkout")
	}
}

func TestHandleStatus_RequiresSessionID(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{})

	rec := f.do(http.MethodPost, "/portal/status", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleReceiptEmail_NotConfigured(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{})

	rec := f.do(http.MethodPost, "/portal/receipt-email", `{"session_id":"42","email":"a@b.co"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when emailing is not configured", rec.Code)
	}
}

func TestRouter_MethodGuard(t *testing.T) {
	f := newPortalFixture(t, &parkingAPI{})

	rec := f.do(http.MethodPost, "/portal", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
		t.Errorf("Allow = %q, want GET", allow)
	}
}

func TestEnsureScope_IssuesCookieOnce(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/portal", nil)
	rec := httptest.NewRecorder()

	scope := ensureScope(rec, req)
	if scope == "" {
		t.Fatal("expected a generated scope")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != scopeCookie || cookies[0].Value != scope {
		t.Fatalf("cookies = %+v", cookies)
	}

	// an existing cookie wins and no new one is written
	req2 := httptest.NewRequest(http.MethodGet, "/portal", nil)
	req2.AddCookie(&http.Cookie{Name: scopeCookie, Value: "tab1"})
	rec2 := httptest.NewRecorder()
	if got := ensureScope(rec2, req2); got != "tab1" {
		t.Fatalf("scope = %q, want tab1", got)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Error("expected no new cookie for an existing scope")
	}
}
