package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func paymentsServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, HTTP: srv.Client()})
}

func TestCreateCheckout(t *testing.T) {
	var gotSessionID string
	client := paymentsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotSessionID = r.URL.Query().Get("session_id")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"checkout_url": "https://pay.example.com/cs_test_123",
		})
	})

	url, err := client.CreateCheckout(context.Background(), "42")
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if url != "https://pay.example.com/cs_test_123" {
		t.Errorf("url = %q", url)
	}
	if gotSessionID != "42" {
		t.Errorf("session_id param = %q, want 42", gotSessionID)
	}
}

func TestCreateCheckout_MissingURL(t *testing.T) {
	client := paymentsServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	_, err := client.CreateCheckout(context.Background(), "42")
	if !errors.Is(err, ErrCheckoutUnavailable) {
		t.Fatalf("error = %v, want ErrCheckoutUnavailable", err)
	}
}

func TestResolveCheckout(t *testing.T) {
	var gotToken string
	client := paymentsServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("cs")
		_ = json.NewEncoder(w).Encode(map[string]int64{"session_id": 42})
	})

	id, err := client.ResolveCheckout(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("ResolveCheckout() error = %v", err)
	}
	if id != "42" {
		t.Errorf("session id = %q, want 42", id)
	}
	if gotToken != "cs_test_123" {
		t.Errorf("cs param = %q", gotToken)
	}
}

func TestResolveCheckout_BackendFailure(t *testing.T) {
	client := paymentsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ResolveCheckout(context.Background(), "cs_test_123")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestConfirmCheckout(t *testing.T) {
	var method string
	client := paymentsServer(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.ConfirmCheckout(context.Background(), "cs_test_123"); err != nil {
		t.Fatalf("ConfirmCheckout() error = %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("method = %q, want POST", method)
	}
}

func TestConfirmCheckout_FailureIsReported(t *testing.T) {
	client := paymentsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	// the caller swallows this, but the error itself must come back
	if err := client.ConfirmCheckout(context.Background(), "cs_test_123"); err == nil {
		t.Fatal("ConfirmCheckout() expected error on 500")
	}
}
