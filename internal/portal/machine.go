package portal

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"parkgate/internal/gateway"
	"parkgate/internal/models"
	"parkgate/internal/store"
)

// ErrBusy rejects a top-level action while another one is outstanding for the
// same machine. Duplicate scans or checkout requests are prevented here, not
// by the backend.
var ErrBusy = errors.New("portal: another action is in progress")

const (
	noticeWaiting      = "Waiting for payment confirmation..."
	noticeUnreachable  = "Could not reach the server. Check your connection and try again."
	noticeCheckoutFail = "Could not start payment. Please try again."
	noticeLoadFail     = "Failed to load receipt."
	noticeUnresolved   = "Could not resolve your receipt. Please return to the kiosk page and try again."
)

// Deps wires a Machine. Gateway, Store and Scope are required; the rest are
// optional.
type Deps struct {
	Gateway   Gateway
	Store     store.Store
	Navigator Navigator
	Journal   Journal
	Poller    *Poller
	Logger    *zap.Logger
	Scope     string
}

// Machine is the portal controller for one page lifetime. It starts in
// Lookup and moves through Summary to the terminal Receipt, driven by scan
// outcomes, checkout, and the return resolver. A new page load gets a new
// Machine; identity crosses the boundary only through the Store.
type Machine struct {
	gw       Gateway
	store    store.Store
	nav      Navigator
	journal  Journal
	poller   *Poller
	resolver *Resolver
	logger   *zap.Logger
	scope    string

	mu        sync.Mutex
	busy      bool
	gen       uint64
	state     State
	sessionID string
}

// New builds a machine in the Lookup state.
func New(deps Deps) *Machine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poller := deps.Poller
	if poller == nil {
		poller = &Poller{Gateway: deps.Gateway, Logger: logger}
	}
	return &Machine{
		gw:      deps.Gateway,
		store:   deps.Store,
		nav:     deps.Navigator,
		journal: deps.Journal,
		poller:  poller,
		resolver: &Resolver{
			Gateway: deps.Gateway,
			Store:   deps.Store,
			Logger:  logger,
		},
		logger: logger,
		scope:  deps.Scope,
		state:  Lookup{},
	}
}

// State returns the current portal state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the session the machine currently holds, "" if none.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// begin claims the machine for one top-level action and bumps the generation.
func (m *Machine) begin() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return 0, ErrBusy
	}
	m.busy = true
	m.gen++
	return m.gen, nil
}

func (m *Machine) finish() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// apply installs a new state unless a later action superseded gen. Stale
// completions are discarded here.
func (m *Machine) apply(gen uint64, st State, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.state = st
	if sessionID != "" {
		m.sessionID = sessionID
	}
	return true
}

// SubmitScan runs an exit scan for the entered plate and transitions per the
// outcome. Failures annotate the Lookup state and are also returned.
func (m *Machine) SubmitScan(ctx context.Context, region, plate string) (State, error) {
	gen, err := m.begin()
	if err != nil {
		return m.State(), err
	}
	defer m.finish()
	return m.doScan(ctx, gen, region, plate)
}

func (m *Machine) doScan(ctx context.Context, gen uint64, region, plate string) (State, error) {
	result, err := m.gw.ScanExit(ctx, region, plate)
	if err != nil {
		st := Lookup{Notice: scanNotice(err)}
		m.apply(gen, st, "")
		return st, err
	}

	switch result.Status {
	case models.SessionClosed:
		// zero-fee exit and the like: straight to receipt
		m.persist(ctx, result.SessionID)
		m.record(ctx, result.Session)
		st := Receipt{Session: result.Session}
		m.apply(gen, st, result.SessionID)
		return st, nil
	default:
		m.persist(ctx, result.SessionID)
		st := Summary{Session: result.Session, Quote: result.Quote}
		m.apply(gen, st, result.SessionID)
		return st, nil
	}
}

// StartCheckout requests the hosted-payment URL for the session and
// navigates. The session id is written to the store unconditionally before
// the redirect; that write is the only thing that survives the navigation.
// A missing session id makes this a no-op.
func (m *Machine) StartCheckout(ctx context.Context, sessionID string) (State, error) {
	gen, err := m.begin()
	if err != nil {
		return m.State(), err
	}
	defer m.finish()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = m.SessionID()
	}
	if sessionID == "" {
		return m.State(), nil
	}

	checkoutURL, err := m.gw.CreateCheckout(ctx, sessionID)
	if err != nil {
		st := Summary{Notice: noticeCheckoutFail}
		m.apply(gen, st, sessionID)
		return st, err
	}

	if err := m.store.Set(ctx, m.scope, sessionID); err != nil {
		// the token-resolve path on return is now the only way back
		m.logger.Error("failed to persist session id before redirect",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	if m.nav != nil {
		if err := m.nav.Redirect(checkoutURL); err != nil {
			m.logger.Error("checkout redirect failed", zap.Error(err))
			st := Summary{Notice: noticeCheckoutFail}
			m.apply(gen, st, sessionID)
			return st, err
		}
	}
	// state is abandoned by the navigation
	return m.State(), nil
}

// Resume handles a page load: resolve identity from the URL and the store,
// nudge confirmation when returning from checkout, poll while the webhook
// lags, and land on the resulting state.
func (m *Machine) Resume(ctx context.Context, params url.Values) (State, error) {
	gen, err := m.begin()
	if err != nil {
		return m.State(), err
	}
	defer m.finish()

	res := m.resolver.Resolve(ctx, m.scope, params)

	if res.Scan != nil {
		return m.doScan(ctx, gen, res.Scan.Region, res.Scan.Plate)
	}

	if res.SessionID == "" {
		st := Lookup{}
		if res.Token != "" {
			st.Notice = noticeUnresolved
		}
		m.apply(gen, st, "")
		return st, nil
	}

	session, err := m.gw.GetSession(ctx, res.SessionID)
	if err != nil {
		st := Lookup{Notice: noticeLoadFail}
		m.apply(gen, st, res.SessionID)
		return st, err
	}

	if session.Status == models.SessionAwaitingPayment && res.Token != "" {
		// best-effort confirm removes one common race without waiting a
		// full poll interval
		if cerr := m.gw.ConfirmCheckout(ctx, res.Token); cerr != nil {
			m.logger.Debug("checkout confirm failed", zap.Error(cerr))
		}
		if refreshed, rerr := m.gw.GetSession(ctx, res.SessionID); rerr == nil {
			session = refreshed
		}
	}

	if session.Status == models.SessionAwaitingPayment {
		polled, perr := m.poller.PollUntilFinal(ctx, res.SessionID)
		switch {
		case perr == nil:
			session = polled
		case errors.Is(perr, ErrReconciliationTimeout):
			if polled != nil {
				session = polled
			}
		default:
			// visitor navigated away; discard the result
			return m.State(), perr
		}
	}

	if session.IsFinal() {
		m.record(ctx, session)
		st := Receipt{Session: session}
		m.apply(gen, st, res.SessionID)
		return st, nil
	}

	st := Summary{Session: session, Quote: quoteFromSession(session), Notice: noticeWaiting}
	m.apply(gen, st, res.SessionID)
	return st, nil
}

// CheckStatus is the manual "I've paid — check status" action: a single
// re-fetch, no polling.
func (m *Machine) CheckStatus(ctx context.Context, sessionID string) (State, error) {
	gen, err := m.begin()
	if err != nil {
		return m.State(), err
	}
	defer m.finish()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = m.SessionID()
	}
	if sessionID == "" {
		return m.State(), nil
	}

	session, err := m.gw.GetSession(ctx, sessionID)
	if err != nil {
		m.logger.Warn("status check failed", zap.String("session_id", sessionID), zap.Error(err))
		return m.State(), err
	}

	if session.IsFinal() {
		m.record(ctx, session)
		st := Receipt{Session: session}
		m.apply(gen, st, sessionID)
		return st, nil
	}

	st := Summary{Session: session, Quote: quoteFromSession(session), Notice: noticeWaiting}
	m.apply(gen, st, sessionID)
	return st, nil
}

func (m *Machine) persist(ctx context.Context, sessionID string) {
	if err := m.store.Set(ctx, m.scope, sessionID); err != nil {
		m.logger.Warn("failed to persist session id", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (m *Machine) record(ctx context.Context, s *models.Session) {
	if m.journal == nil || s == nil {
		return
	}
	if err := m.journal.Record(ctx, s); err != nil {
		m.logger.Warn("receipt journal write failed", zap.Int64("session_id", s.ID), zap.Error(err))
	}
}

// quoteFromSession rebuilds a display quote from a re-fetched session, for
// loads that never saw the original scan quote.
func quoteFromSession(s *models.Session) *models.Quote {
	return &models.Quote{
		AmountCents:     s.AmountCharged,
		Currency:        s.Currency(),
		MinutesBillable: s.MinutesBillable(),
	}
}

func scanNotice(err error) string {
	var ve *gateway.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var re *gateway.RejectionError
	if errors.As(err, &re) {
		return re.Detail
	}
	return noticeUnreachable
}
