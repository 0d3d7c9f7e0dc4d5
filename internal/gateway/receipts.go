package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether v looks like a deliverable address.
func IsEmail(v string) bool {
	return emailPattern.MatchString(v)
}

// ReceiptSender relays receipt emails to the configured endpoint.
// Fire-and-forget: a failure never blocks the visitor flow.
type ReceiptSender struct {
	endpoint string
	http     HTTPDoer
	logger   *zap.Logger
}

// NewReceiptSender builds the sender. An empty endpoint disables it.
func NewReceiptSender(endpoint string, httpClient HTTPDoer, logger *zap.Logger) *ReceiptSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptSender{endpoint: endpoint, http: httpClient, logger: logger}
}

// Enabled reports whether an endpoint is configured.
func (s *ReceiptSender) Enabled() bool {
	return s.endpoint != ""
}

type receiptEmailRequest struct {
	SessionID int64  `json:"session_id"`
	Email     string `json:"email"`
}

// Send posts the receipt request for a session.
func (s *ReceiptSender) Send(ctx context.Context, sessionID, email string) error {
	if !s.Enabled() {
		s.logger.Debug("receipt endpoint not configured, skipping send")
		return nil
	}
	if !IsEmail(email) {
		return &ValidationError{Message: "Enter a valid email address."}
	}

	id, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return &ValidationError{Message: "Unknown session."}
	}

	data, err := json.Marshal(receiptEmailRequest{SessionID: id, Email: email})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("receipt email request failed", zap.Error(err))
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("receipt email returned non-success", zap.Int("status", resp.StatusCode))
		return ErrUnavailable
	}
	return nil
}
