package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

type resolveResponse struct {
	SessionID int64 `json:"session_id"`
}

// CreateCheckout requests a hosted-payment redirect URL for the session.
func (c *Client) CreateCheckout(ctx context.Context, sessionID string) (string, error) {
	path := "/payments/checkout?session_id=" + url.QueryEscape(sessionID)
	status, body, err := c.do(ctx, http.MethodPost, path, nil, false)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: checkout failed (%d)", ErrUnavailable, status)
	}

	var resp checkoutResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.CheckoutURL == "" {
		return "", ErrCheckoutUnavailable
	}
	return resp.CheckoutURL, nil
}

// ResolveCheckout translates a provider checkout token into the session id it
// was minted for.
func (c *Client) ResolveCheckout(ctx context.Context, token string) (string, error) {
	path := "/payments/resolve?cs=" + url.QueryEscape(token)
	status, body, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: resolve failed (%d)", ErrUnavailable, status)
	}

	var resp resolveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.SessionID == 0 {
		return "", fmt.Errorf("%w: resolve returned no session", ErrUnavailable)
	}
	return strconv.FormatInt(resp.SessionID, 10), nil
}

// ConfirmCheckout nudges the backend to confirm a checkout token. Best-effort:
// callers swallow the error because the poller independently re-fetches.
func (c *Client) ConfirmCheckout(ctx context.Context, token string) error {
	path := "/payments/confirm?cs=" + url.QueryEscape(token)
	status, _, err := c.do(ctx, http.MethodPost, path, nil, true)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("payment confirm returned non-success", zap.Int("status", status))
		return fmt.Errorf("%w: confirm failed (%d)", ErrUnavailable, status)
	}
	return nil
}
