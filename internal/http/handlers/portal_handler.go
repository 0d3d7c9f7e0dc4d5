package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"parkgate/internal/gateway"
	"parkgate/internal/models"
	"parkgate/internal/portal"
	"parkgate/internal/store"
)

// PortalHandler serves the visitor flow. Every GET /portal is one page load:
// a fresh machine is built, resumed, and discarded — the only state that
// crosses loads is the session slot in the store.
type PortalHandler struct {
	gateway       portal.Gateway
	store         store.Store
	journal       portal.Journal
	receipts      *gateway.ReceiptSender
	logger        *zap.Logger
	pollAttempts  int
	pollInterval  time.Duration
	defaultRegion string
}

// PortalHandlerOptions wires the handler.
type PortalHandlerOptions struct {
	Gateway       portal.Gateway
	Store         store.Store
	Journal       portal.Journal
	Receipts      *gateway.ReceiptSender
	Logger        *zap.Logger
	PollAttempts  int
	PollInterval  time.Duration
	DefaultRegion string
}

// NewPortalHandler builds the handler set.
func NewPortalHandler(opts PortalHandlerOptions) *PortalHandler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalHandler{
		gateway:       opts.Gateway,
		store:         opts.Store,
		journal:       opts.Journal,
		receipts:      opts.Receipts,
		logger:        logger,
		pollAttempts:  opts.PollAttempts,
		pollInterval:  opts.PollInterval,
		defaultRegion: opts.DefaultRegion,
	}
}

func (h *PortalHandler) newMachine(scope string, nav portal.Navigator) *portal.Machine {
	return portal.New(portal.Deps{
		Gateway:   h.gateway,
		Store:     h.store,
		Navigator: nav,
		Journal:   h.journal,
		Poller: &portal.Poller{
			Gateway:  h.gateway,
			Attempts: h.pollAttempts,
			Interval: h.pollInterval,
			Logger:   h.logger,
		},
		Logger: h.logger,
		Scope:  scope,
	})
}

type stateResponse struct {
	Step         string          `json:"step"`
	Notice       string          `json:"notice,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	CanonicalURL string          `json:"canonical_url,omitempty"`
	Session      *models.Session `json:"session,omitempty"`
	Quote        *models.Quote   `json:"quote,omitempty"`
	TotalDue     string          `json:"total_due,omitempty"`
	AmountPaid   string          `json:"amount_paid,omitempty"`
	Entered      string          `json:"entered,omitempty"`
	Exited       string          `json:"exited,omitempty"`
}

func renderState(st portal.State, sessionID string) stateResponse {
	resp := stateResponse{Step: string(st.Step()), SessionID: sessionID}
	if sessionID != "" {
		resp.CanonicalURL = "/portal?session_id=" + sessionID
	}
	switch s := st.(type) {
	case portal.Lookup:
		resp.Notice = s.Notice
	case portal.Summary:
		resp.Notice = s.Notice
		resp.Session = s.Session
		resp.Quote = s.Quote
		if s.Quote != nil {
			resp.TotalDue = models.FormatAmount(s.Quote.AmountCents, s.Quote.Currency)
		}
		if s.Session != nil {
			resp.Entered = models.FormatClock(s.Session.StartedAt)
			resp.Exited = models.FormatClock(s.Session.EndedAt)
		}
	case portal.Receipt:
		resp.Session = s.Session
		if s.Session != nil {
			resp.AmountPaid = models.FormatAmount(s.Session.AmountCharged, s.Session.Currency())
			resp.Entered = models.FormatClock(s.Session.StartedAt)
			resp.Exited = models.FormatClock(s.Session.EndedAt)
		}
	}
	return resp
}

// HandlePortal handles GET /portal: the page load.
func (h *PortalHandler) HandlePortal(w http.ResponseWriter, r *http.Request) {
	scope := ensureScope(w, r)
	m := h.newMachine(scope, nil)

	state, err := m.Resume(r.Context(), r.URL.Query())
	if err != nil && r.Context().Err() != nil {
		// visitor is gone, nothing to render
		return
	}
	if err != nil {
		h.logger.Warn("portal load degraded", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, renderState(state, m.SessionID()))
}

type scanRequest struct {
	RegionCode string `json:"region_code"`
	PlateText  string `json:"plate_text"`
}

// HandleScan handles POST /portal/scan.
func (h *PortalHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RegionCode == "" {
		req.RegionCode = h.defaultRegion
	}

	scope := ensureScope(w, r)
	m := h.newMachine(scope, nil)

	state, err := m.SubmitScan(r.Context(), req.RegionCode, req.PlateText)
	if err != nil && !gateway.IsValidation(err) && !gateway.IsRejection(err) {
		h.logger.Warn("exit scan failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, renderState(state, m.SessionID()))
}

type checkoutRequest struct {
	SessionID string `json:"session_id"`
}

// HandleCheckout handles POST /portal/checkout. On success the response is a
// 303 to the hosted payment page.
func (h *PortalHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	scope := ensureScope(w, r)
	nav := &redirectNavigator{w: w, r: r}
	m := h.newMachine(scope, nav)

	state, err := m.StartCheckout(r.Context(), req.SessionID)
	if nav.done {
		return
	}
	if err != nil {
		if errors.Is(err, gateway.ErrCheckoutUnavailable) {
			h.logger.Error("checkout url missing", zap.String("session_id", req.SessionID))
		} else {
			h.logger.Warn("checkout start failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, renderState(state, req.SessionID))
}

type statusRequest struct {
	SessionID string `json:"session_id"`
}

// HandleStatus handles POST /portal/status: the manual check after a
// reconciliation timeout.
func (h *PortalHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	scope := ensureScope(w, r)
	m := h.newMachine(scope, nil)

	state, err := m.CheckStatus(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Warn("status check failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, renderState(state, m.SessionID()))
}

type receiptEmailRequest struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
}

// HandleReceiptEmail handles POST /portal/receipt-email.
func (h *PortalHandler) HandleReceiptEmail(w http.ResponseWriter, r *http.Request) {
	var req receiptEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if h.receipts == nil || !h.receipts.Enabled() {
		writeError(w, http.StatusNotFound, "receipt emailing not configured")
		return
	}

	if err := h.receipts.Send(r.Context(), req.SessionID, req.Email); err != nil {
		if gateway.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "could not send email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// redirectNavigator performs the checkout navigation as a 303 response.
type redirectNavigator struct {
	w    http.ResponseWriter
	r    *http.Request
	done bool
}

func (n *redirectNavigator) Redirect(url string) error {
	http.Redirect(n.w, n.r, url, http.StatusSeeOther)
	n.done = true
	return nil
}
