package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	gateTokenTTL    = 5 * time.Minute
	gateTokenMargin = 30 * time.Second
)

// GateClaims identify the kiosk to the parking API.
type GateClaims struct {
	GateID string `json:"gate_id"`
	Source string `json:"source"`
	jwt.RegisteredClaims
}

// TokenIssuer mints short-lived HS256 gate tokens and reuses them until they
// near expiry.
type TokenIssuer struct {
	secret []byte
	gateID string
	source string

	mu      sync.Mutex
	current string
	expires time.Time
}

// NewTokenIssuer returns a configured issuer.
func NewTokenIssuer(secret, gateID, source string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token: empty secret")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		gateID: gateID,
		source: source,
	}, nil
}

// Token returns a valid gate token, reissuing when the cached one is close
// to expiry.
func (t *TokenIssuer) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	if t.current != "" && now.Before(t.expires.Add(-gateTokenMargin)) {
		return t.current, nil
	}

	expires := now.Add(gateTokenTTL)
	claims := GateClaims{
		GateID: t.gateID,
		Source: t.source,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", err
	}
	t.current = signed
	t.expires = expires
	return signed, nil
}
