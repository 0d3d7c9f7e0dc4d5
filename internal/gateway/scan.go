package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"parkgate/internal/models"
)

const minPlateLength = 4

// ScanResult is the mapped outcome of an exit scan. Status is never
// models.SessionError here; domain rejections come back as *RejectionError.
type ScanResult struct {
	Status    string
	SessionID string
	Quote     *models.Quote
	Session   *models.Session
}

type scanExitRequest struct {
	RegionCode string `json:"region_code"`
	PlateText  string `json:"plate_text"`
	GateID     string `json:"gate_id"`
	Source     string `json:"source"`
}

type scanExitResponse struct {
	Status          string `json:"status"`
	SessionID       int64  `json:"session_id"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	MinutesBillable int64  `json:"minutes_billable"`
	Detail          string `json:"detail"`
}

// NormalizePlate uppercases the plate and strips all whitespace.
func NormalizePlate(plate string) string {
	return strings.Join(strings.Fields(strings.ToUpper(plate)), "")
}

// ScanExit performs the exit scan for a plate and maps the backend outcome.
// After any non-error outcome the full session record is fetched immediately
// so the caller has timestamps and plan for display.
func (c *Client) ScanExit(ctx context.Context, region, plate string) (*ScanResult, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	plate = NormalizePlate(plate)
	if region == "" || len(plate) < minPlateLength {
		return nil, &ValidationError{Message: "Enter a valid plate (min 4 characters)."}
	}

	status, body, err := c.do(ctx, http.MethodPost, "/scans/exit", scanExitRequest{
		RegionCode: region,
		PlateText:  plate,
		GateID:     c.gateID,
		Source:     c.source,
	}, false)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: exit scan failed (%d)", ErrUnavailable, status)
	}

	var resp scanExitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch resp.Status {
	case models.SessionError:
		detail := resp.Detail
		if detail == "" {
			detail = "Unable to prepare your session. Please contact support at the exit."
		}
		return nil, &RejectionError{Detail: detail}
	case models.SessionAwaitingPayment, models.SessionClosed:
		if resp.SessionID == 0 {
			return nil, &RejectionError{Detail: "Unexpected response. Please try again."}
		}
	default:
		return nil, &RejectionError{Detail: "Unexpected response. Please try again."}
	}

	result := &ScanResult{
		Status:    resp.Status,
		SessionID: strconv.FormatInt(resp.SessionID, 10),
	}
	if resp.Status == models.SessionAwaitingPayment {
		currency := resp.Currency
		if currency == "" {
			currency = models.DefaultCurrency
		}
		result.Quote = &models.Quote{
			AmountCents:     resp.AmountCents,
			Currency:        currency,
			MinutesBillable: resp.MinutesBillable,
		}
	}

	session, err := c.GetSession(ctx, result.SessionID)
	if err != nil {
		return nil, err
	}
	result.Session = session
	return result, nil
}
