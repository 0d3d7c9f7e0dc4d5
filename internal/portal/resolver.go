package portal

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"parkgate/internal/store"
)

// CheckoutTokenPrefix is the provider convention that distinguishes a
// checkout token from a plain session id in the return URL.
const CheckoutTokenPrefix = "cs_"

// Resolution is the outcome of one page load's identity resolution.
// Zero value means nothing could be resolved.
type Resolution struct {
	// SessionID is the resolved parking session, "" when unresolved.
	SessionID string
	// Token is the checkout token the load carried, "" otherwise. It is not
	// retained beyond the resume that consumes it.
	Token string
	// Scan is set when the URL was a region+plate deep link: not a
	// resolution but a fresh scan request.
	Scan *ScanRequest
}

// ScanRequest is a kiosk deep link asking for a fresh exit scan.
type ScanRequest struct {
	Region string
	Plate  string
}

// CanonicalQuery is the query string the display should show after
// resolution: the one-shot token dropped, the session id pinned. A manual
// refresh then resolves via the direct-id path instead of re-running the
// token exchange.
func (r Resolution) CanonicalQuery() string {
	if r.SessionID == "" {
		return ""
	}
	v := url.Values{}
	v.Set("session_id", r.SessionID)
	return v.Encode()
}

// Resolver turns a page load's URL parameters plus the persisted identifier
// into at most one session id. Policy (first match wins):
//
//  1. direct session_id in the URL
//  2. checkout token, exchanged via the backend resolver; on success the
//     store is overwritten so further reloads stay authoritative
//  3. token present but exchange failed: persisted identifier
//  4. region+plate deep link: a fresh scan, delegated to the gateway
//  5. persisted identifier alone
type Resolver struct {
	Gateway Gateway
	Store   store.Store
	Logger  *zap.Logger
}

// Resolve runs the resolution policy for one page load.
func (r *Resolver) Resolve(ctx context.Context, scope string, params url.Values) Resolution {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sid := strings.TrimSpace(params.Get("session_id"))
	token := strings.TrimSpace(params.Get("cs"))
	// Some provider configurations hand the token back in session_id.
	if token == "" && strings.HasPrefix(sid, CheckoutTokenPrefix) {
		token = sid
		sid = ""
	}

	if sid != "" {
		return Resolution{SessionID: sid}
	}

	if token != "" {
		resolved, err := r.Gateway.ResolveCheckout(ctx, token)
		if err == nil {
			if setErr := r.Store.Set(ctx, scope, resolved); setErr != nil {
				logger.Warn("failed to persist resolved session id", zap.Error(setErr))
			}
			return Resolution{SessionID: resolved, Token: token}
		}
		logger.Warn("checkout token resolve failed, falling back to stored id",
			zap.Error(err))
		if stored, ok, getErr := r.Store.Get(ctx, scope); getErr == nil && ok {
			return Resolution{SessionID: stored, Token: token}
		}
	}

	region := strings.TrimSpace(params.Get("region"))
	plate := strings.TrimSpace(params.Get("plate"))
	if region != "" && plate != "" {
		return Resolution{Scan: &ScanRequest{Region: region, Plate: plate}}
	}

	if stored, ok, err := r.Store.Get(ctx, scope); err == nil && ok {
		return Resolution{SessionID: stored, Token: token}
	} else if err != nil {
		logger.Warn("persisted identifier read failed", zap.Error(err))
	}

	return Resolution{Token: token}
}
