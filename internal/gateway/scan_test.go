package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"parkgate/internal/models"
)

type backend struct {
	scanCalls    int
	sessionCalls int
	scanStatus   int
	scanBody     map[string]interface{}
	lastScan     scanExitRequest
	session      *models.Session
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scans/exit", func(w http.ResponseWriter, r *http.Request) {
		b.scanCalls++
		_ = json.NewDecoder(r.Body).Decode(&b.lastScan)
		status := b.scanStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(b.scanBody)
	})
	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		b.sessionCalls++
		if b.session == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.session)
	})
	return mux
}

func newTestClient(t *testing.T, b *backend) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		BaseURL: srv.URL,
		HTTP:    srv.Client(),
		GateID:  "web_portal",
		Source:  "driver_portal",
	})
	return client, srv
}

func TestScanExit_AwaitingPayment(t *testing.T) {
	b := &backend{
		scanBody: map[string]interface{}{
			"status":           "awaiting_payment",
			"session_id":       42,
			"amount_cents":     500,
			"currency":         "EUR",
			"minutes_billable": 95,
		},
		session: &models.Session{ID: 42, Status: models.SessionAwaitingPayment},
	}
	client, _ := newTestClient(t, b)

	result, err := client.ScanExit(context.Background(), "bg", " nn 18267 ")
	if err != nil {
		t.Fatalf("ScanExit() error = %v", err)
	}

	if b.scanCalls != 1 {
		t.Errorf("scan calls = %d, want exactly 1", b.scanCalls)
	}
	if b.lastScan.RegionCode != "BG" || b.lastScan.PlateText != "NN18267" {
		t.Errorf("normalized request = %+v", b.lastScan)
	}
	if b.lastScan.GateID != "web_portal" || b.lastScan.Source != "driver_portal" {
		t.Errorf("gate identity = %+v", b.lastScan)
	}

	if result.SessionID != "42" {
		t.Errorf("session id = %q, want 42", result.SessionID)
	}
	if result.Quote == nil || result.Quote.AmountCents != 500 || result.Quote.Currency != "EUR" {
		t.Errorf("quote = %+v", result.Quote)
	}
	if result.Session == nil || result.Session.ID != 42 {
		t.Errorf("expected hydrated session, got %+v", result.Session)
	}
	if b.sessionCalls != 1 {
		t.Errorf("session fetches = %d, want 1", b.sessionCalls)
	}
}

func TestScanExit_InvalidPlateMakesNoNetworkCall(t *testing.T) {
	b := &backend{}
	client, _ := newTestClient(t, b)

	tests := []struct {
		name  string
		plate string
	}{
		{"too short", "AB1"},
		{"whitespace only", "   "},
		{"short after stripping", " A B 1 "},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ScanExit(context.Background(), "BG", tt.plate)
			if !IsValidation(err) {
				t.Fatalf("error = %v, want validation", err)
			}
		})
	}
	if b.scanCalls != 0 {
		t.Errorf("scan calls = %d, want 0", b.scanCalls)
	}
}

func TestScanExit_DomainRejection(t *testing.T) {
	b := &backend{
		scanBody: map[string]interface{}{
			"status": "error",
			"detail": "No entry scan found for this plate.",
		},
	}
	client, _ := newTestClient(t, b)

	_, err := client.ScanExit(context.Background(), "BG", "NN18267")
	if !IsRejection(err) {
		t.Fatalf("error = %v, want rejection", err)
	}
	var re *RejectionError
	if !errors.As(err, &re) || re.Detail != "No entry scan found for this plate." {
		t.Errorf("detail = %v", err)
	}
	if b.sessionCalls != 0 {
		t.Errorf("session fetches = %d, want 0 after rejection", b.sessionCalls)
	}
}

func TestScanExit_ClosedSkipsQuote(t *testing.T) {
	b := &backend{
		scanBody: map[string]interface{}{
			"status":     "closed",
			"session_id": 7,
		},
		session: &models.Session{ID: 7, Status: models.SessionClosed},
	}
	client, _ := newTestClient(t, b)

	result, err := client.ScanExit(context.Background(), "BG", "NN18267")
	if err != nil {
		t.Fatalf("ScanExit() error = %v", err)
	}
	if result.Status != models.SessionClosed {
		t.Errorf("status = %q, want closed", result.Status)
	}
	if result.Quote != nil {
		t.Errorf("quote = %+v, want nil for a closed session", result.Quote)
	}
	if result.Session == nil || result.Session.Status != models.SessionClosed {
		t.Errorf("session = %+v", result.Session)
	}
}

func TestScanExit_ServerErrorIsUnavailable(t *testing.T) {
	b := &backend{scanStatus: http.StatusInternalServerError, scanBody: map[string]interface{}{}}
	client, _ := newTestClient(t, b)

	_, err := client.ScanExit(context.Background(), "BG", "NN18267")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestScanExit_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: baseURL})
	_, err := client.ScanExit(context.Background(), "BG", "NN18267")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestScanExit_UnexpectedStatusIsRejection(t *testing.T) {
	b := &backend{
		scanBody: map[string]interface{}{"status": "tentative", "session_id": 42},
	}
	client, _ := newTestClient(t, b)

	_, err := client.ScanExit(context.Background(), "BG", "NN18267")
	if !IsRejection(err) {
		t.Fatalf("error = %v, want rejection for unknown status", err)
	}
}
