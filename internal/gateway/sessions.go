package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"parkgate/internal/models"
)

// GetSession fetches the full session record. Reads are cache-busted because
// they race the payment provider's webhook.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID, nil, true)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: session fetch failed (%d)", ErrUnavailable, status)
	}

	var session models.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &session, nil
}
