package models

import "time"

// Session status values as reported by the parking API. paid and closed are
// terminal; no transition ever leaves them.
const (
	SessionAwaitingPayment = "awaiting_payment"
	SessionPaid            = "paid"
	SessionClosed          = "closed"
	SessionError           = "error"
)

// DefaultCurrency is assumed whenever the plan snapshot carries none.
const DefaultCurrency = "EUR"

// Vehicle identifies the car a session belongs to. Immutable once the
// session exists.
type Vehicle struct {
	RegionCode string `json:"region_code"`
	PlateText  string `json:"plate_text"`
}

// Plan is the billing plan snapshot frozen into the session at entry.
type Plan struct {
	Currency         string `json:"currency"`
	RateCentsPerHour int64  `json:"rate_cents_per_hour"`
}

// Session represents one parking occupancy from entry scan to paid exit.
type Session struct {
	ID            int64      `json:"id"`
	Status        string     `json:"status"`
	StartedAt     *time.Time `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	AmountCharged int64      `json:"amount_charged"`
	Vehicle       Vehicle    `json:"vehicle"`
	Plan          Plan       `json:"plan"`
}

// IsFinal reports whether the session reached a terminal-successful state.
func (s *Session) IsFinal() bool {
	return s != nil && (s.Status == SessionPaid || s.Status == SessionClosed)
}

// Currency returns the plan currency, falling back to the default.
func (s *Session) Currency() string {
	if s != nil && s.Plan.Currency != "" {
		return s.Plan.Currency
	}
	return DefaultCurrency
}

// MinutesBillable derives the billable duration from the session timestamps.
// Zero when either boundary is unknown.
func (s *Session) MinutesBillable() int64 {
	if s == nil || s.StartedAt == nil || s.EndedAt == nil {
		return 0
	}
	d := s.EndedAt.Sub(*s.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// Quote is the ephemeral fee estimate returned at exit-scan time. It is never
// persisted; a re-fetched session supersedes it.
type Quote struct {
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	MinutesBillable int64  `json:"minutes_billable"`
}
