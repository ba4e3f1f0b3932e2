package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/investio/investio/internal/billing"
	"github.com/investio/investio/internal/config"
	svcerrors "github.com/investio/investio/internal/errors"
	"github.com/investio/investio/internal/gate"
	"github.com/investio/investio/internal/marketdata"
)

const (
	visitCookieName = "investio_visit"
	visitDuration   = 24 * time.Hour
	tableTailRows   = 10
)

// billingService is the slice of the billing client the handlers use.
type billingService interface {
	StartCheckout(ctx context.Context, email string, plan config.Plan) (string, error)
	LookupSession(ctx context.Context, sessionID string) (*billing.SessionLookup, error)
	OpenManagementPortal(ctx context.Context, customerID string) (string, error)
}

// Handlers serves the dashboard and its form actions.
type Handlers struct {
	cfg     *config.Config
	gate    *gate.Gate
	billing billingService
	market  *marketdata.Client
	visits  *VisitStore
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(cfg *config.Config, g *gate.Gate, billingClient billingService, market *marketdata.Client, visits *VisitStore) *Handlers {
	return &Handlers{
		cfg:     cfg,
		gate:    g,
		billing: billingClient,
		market:  market,
		visits:  visits,
	}
}

// ensureVisit returns the visit token and state for the request, creating a
// fresh visit (and cookie) when none exists.
func (h *Handlers) ensureVisit(w http.ResponseWriter, r *http.Request) (string, gate.VisitState) {
	if cookie, err := r.Cookie(visitCookieName); err == nil && cookie.Value != "" {
		if state, ok := h.visits.Lookup(cookie.Value); ok {
			return cookie.Value, state
		}
	}

	token := uuid.NewString()
	h.visits.Create(token, visitDuration)
	http.SetCookie(w, &http.Cookie{
		Name:     visitCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(visitDuration.Seconds()),
	})
	return token, gate.VisitState{}
}

// HandleDashboard renders the main page. The Stripe success redirect lands
// here with a session_id query parameter, which the access gate validates
// on every render.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	token, visit := h.ensureVisit(w, r)
	query := r.URL.Query()

	authorized := h.gate.EvaluateAccess(r.Context(), &visit, query)

	sessionID := strings.TrimSpace(query.Get(billing.SessionIDParam))
	if authorized && sessionID != "" && visit.CustomerID == "" {
		// The gate validates the subscription but does not retain the
		// customer; fetch it once so the billing portal is reachable.
		h.adoptCheckoutReturn(r, token, &visit, sessionID)
	}

	data := dashboardData{
		Email:             visit.UserEmail,
		Cancelled:         strings.EqualFold(strings.TrimSpace(query.Get("cancelled")), "1"),
		LoggedIn:          visit.LoggedIn,
		IsAdmin:           visit.IsAdmin,
		Authorized:        authorized,
		BillingConfigured: h.cfg.BillingConfigured(),
		AdminConfigured:   h.cfg.AdminPasswordConfigured(),
		CanManageBilling:  h.cfg.BillingConfigured() && visit.CustomerID != "",
		SessionID:         sessionID,
	}
	if strings.EqualFold(strings.TrimSpace(query.Get("admin_failed")), "1") {
		data.ErrorMessage = "Admin password not accepted."
	}
	if visit.Subscribed {
		data.Notice = "Subscription active. Welcome back."
	}

	if authorized {
		if ticker := strings.ToUpper(strings.TrimSpace(query.Get("ticker"))); ticker != "" {
			data.Ticker = ticker
			bars, err := h.market.PriceHistory(r.Context(), ticker)
			switch {
			case err == nil && len(bars) > 0:
				data.HasData = true
				data.Chart = buildChartSVG(bars)
				data.Bars = marketdata.Tail(bars, tableTailRows)
			case err == nil:
				// empty series is a valid "no data" response
			case svcerrors.IsConfigurationError(err):
				data.ErrorMessage = "Market data is not configured."
			default:
				log.Warn().Err(err).Str("ticker", ticker).Msg("Price history fetch failed")
				data.ErrorMessage = "Unable to load price history. Please try again."
			}
		}
	}

	h.renderDashboard(w, http.StatusOK, data)
}

// adoptCheckoutReturn captures the customer behind a validated checkout
// session onto the visit.
func (h *Handlers) adoptCheckoutReturn(r *http.Request, token string, visit *gate.VisitState, sessionID string) {
	result, err := h.billing.LookupSession(r.Context(), sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("Checkout return: customer retrieval failed")
		return
	}
	visit.CustomerID = result.CustomerID
	visit.Subscribed = gate.StatusAuthorized(result.Status)
	if !visit.LoggedIn && result.Email != "" {
		visit.LoggedIn = true
		visit.UserEmail = strings.ToLower(result.Email)
	}
	h.visits.Save(token, *visit)
	log.Info().Str("customer_id", result.CustomerID).Msg("Checkout return adopted")
}

// HandleLogin records the visitor's email on the visit.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	token, visit := h.ensureVisit(w, r)
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	if !isValidEmail(email) {
		h.renderDashboard(w, http.StatusBadRequest, dashboardData{
			ErrorMessage:      "A valid email address is required.",
			BillingConfigured: h.cfg.BillingConfigured(),
			AdminConfigured:   h.cfg.AdminPasswordConfigured(),
		})
		return
	}

	visit.LoggedIn = true
	visit.UserEmail = email
	h.visits.Save(token, visit)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleAdminLogin attempts the admin unlock path.
func (h *Handlers) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	token, visit := h.ensureVisit(w, r)
	if h.gate.AttemptAdminLogin(&visit, r.FormValue("password")) {
		h.visits.Save(token, visit)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/?admin_failed=1", http.StatusSeeOther)
}

// HandleLogout clears the visit.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie(visitCookieName); err == nil && cookie.Value != "" {
		h.visits.Delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     visitCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleCheckout starts a subscription checkout and redirects to Stripe.
func (h *Handlers) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}

	token, visit := h.ensureVisit(w, r)
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	if email == "" {
		email = visit.UserEmail
	}
	plan := config.ParsePlan(r.FormValue("plan"))

	checkoutURL, err := h.billing.StartCheckout(r.Context(), email, plan)
	if err != nil {
		data := dashboardData{
			Email:             email,
			LoggedIn:          visit.LoggedIn,
			BillingConfigured: h.cfg.BillingConfigured(),
			AdminConfigured:   h.cfg.AdminPasswordConfigured(),
		}
		status := http.StatusBadGateway
		switch {
		case svcerrors.IsConfigurationError(err):
			data.ErrorMessage = "Checkout is not configured yet. Please contact support."
			status = http.StatusServiceUnavailable
		case svcerrors.IsValidationError(err):
			data.ErrorMessage = "A valid email address is required."
			status = http.StatusBadRequest
		default:
			log.Warn().Err(err).Str("plan", string(plan)).Msg("Checkout session creation failed")
			data.ErrorMessage = "Unable to create checkout session. Please try again."
		}
		h.renderDashboard(w, status, data)
		return
	}

	if !visit.LoggedIn {
		visit.LoggedIn = true
		visit.UserEmail = email
		h.visits.Save(token, visit)
	}
	http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
}

// HandlePortal opens the billing management portal for an established
// customer.
func (h *Handlers) HandlePortal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, visit := h.ensureVisit(w, r)
	portalURL, err := h.billing.OpenManagementPortal(r.Context(), visit.CustomerID)
	if err != nil {
		data := dashboardData{
			Email:             visit.UserEmail,
			LoggedIn:          visit.LoggedIn,
			IsAdmin:           visit.IsAdmin,
			BillingConfigured: h.cfg.BillingConfigured(),
			AdminConfigured:   h.cfg.AdminPasswordConfigured(),
		}
		status := http.StatusBadGateway
		switch {
		case svcerrors.IsConfigurationError(err):
			data.ErrorMessage = "Billing management is not configured."
			status = http.StatusServiceUnavailable
		case svcerrors.IsValidationError(err):
			data.ErrorMessage = "No billing account on this visit yet. Complete checkout first."
			status = http.StatusBadRequest
		default:
			log.Warn().Err(err).Msg("Billing portal session creation failed")
			data.ErrorMessage = "Unable to open the billing portal. Please try again."
		}
		h.renderDashboard(w, status, data)
		return
	}
	http.Redirect(w, r, portalURL, http.StatusSeeOther)
}

type historyResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Ticker  string           `json:"ticker,omitempty"`
	Bars    []marketdata.Bar `json:"bars"`
}

// HandleHistory returns the OHLC series as JSON for authorized visits.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, visit := h.ensureVisit(w, r)
	query := r.URL.Query()
	if !h.gate.EvaluateAccess(r.Context(), &visit, query) {
		writeJSON(w, http.StatusUnauthorized, historyResponse{Error: "subscription required"})
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(query.Get("ticker")))
	if ticker == "" {
		writeJSON(w, http.StatusBadRequest, historyResponse{Error: "ticker required"})
		return
	}

	bars, err := h.market.PriceHistory(r.Context(), ticker)
	if err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("Price history fetch failed")
		writeJSON(w, http.StatusBadGateway, historyResponse{Error: "price history unavailable"})
		return
	}
	if bars == nil {
		bars = []marketdata.Bar{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, Ticker: ticker, Bars: bars})
}

// HandleHealthz is a liveness probe.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) renderDashboard(w http.ResponseWriter, status int, data dashboardData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := dashboardTemplate.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("Dashboard render failed")
	}
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return strings.TrimSpace(parsed.Address) != ""
}

func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Encode response failed")
	}
}
