package portal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"parkgate/internal/models"
)

const (
	defaultPollAttempts = 6
	defaultPollInterval = 2 * time.Second
)

// ErrReconciliationTimeout means the poll budget ran out before the payment
// webhook flipped the session. Not fatal: the portal degrades to a manual
// check-status action.
var ErrReconciliationTimeout = errors.New("portal: payment confirmation still pending")

// Poller waits for the backend's asynchronous payment confirmation by
// re-fetching the session a bounded number of times. Strictly sequential;
// cancelling the context abandons the poll.
type Poller struct {
	Gateway  Gateway
	Attempts int
	Interval time.Duration
	Logger   *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// PollUntilFinal re-fetches the session until it reaches a terminal state or
// the attempt budget is spent. On timeout it returns the last fetched session
// together with ErrReconciliationTimeout.
func (p *Poller) PollUntilFinal(ctx context.Context, sessionID string) (*models.Session, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var last *models.Session
	for i := 0; i < attempts; i++ {
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
		session, err := p.Gateway.GetSession(ctx, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("reconciliation fetch failed",
				zap.String("session_id", sessionID),
				zap.Int("attempt", i+1),
				zap.Error(err))
			continue
		}
		if session.IsFinal() {
			return session, nil
		}
		last = session
	}
	return last, ErrReconciliationTimeout
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
