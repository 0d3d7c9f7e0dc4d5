package portal

import (
	"context"

	"parkgate/internal/gateway"
	"parkgate/internal/models"
)

// Gateway is the slice of the parking API the portal needs.
type Gateway interface {
	ScanExit(ctx context.Context, region, plate string) (*gateway.ScanResult, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	CreateCheckout(ctx context.Context, sessionID string) (string, error)
	ResolveCheckout(ctx context.Context, token string) (string, error)
	ConfirmCheckout(ctx context.Context, token string) error
}

// Navigator performs the top-level redirect to the hosted payment page. The
// kiosk HTTP layer implements it as a 303 response.
type Navigator interface {
	Redirect(url string) error
}

// Journal records finalized sessions for offline audit at the gate.
// Best-effort; a nil Journal disables it.
type Journal interface {
	Record(ctx context.Context, s *models.Session) error
}
