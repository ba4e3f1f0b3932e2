// Package gate decides whether a visit may see the protected dashboard.
package gate

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/investio/investio/internal/auth"
	"github.com/investio/investio/internal/billing"
	"github.com/investio/investio/internal/config"
	"github.com/investio/investio/internal/metrics"
)

// VisitState is the ephemeral per-session state owned by the calling
// context. It is created empty when a visitor first arrives, mutated only
// through the login, checkout-return and admin-unlock paths, and cleared
// on logout.
type VisitState struct {
	IsAdmin    bool   `json:"is_admin"`
	LoggedIn   bool   `json:"logged_in"`
	UserEmail  string `json:"user_email,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Subscribed bool   `json:"subscribed"`
}

// SubscriptionLookup abstracts the remote payment-session lookup.
type SubscriptionLookup interface {
	LookupSession(ctx context.Context, sessionID string) (*billing.SessionLookup, error)
}

// Gate evaluates access for a visit against the immutable configuration and
// a remote subscription lookup.
type Gate struct {
	cfg    *config.Config
	lookup SubscriptionLookup
}

// New creates a Gate.
func New(cfg *config.Config, lookup SubscriptionLookup) *Gate {
	return &Gate{cfg: cfg, lookup: lookup}
}

// EvaluateAccess decides whether protected content is shown for the current
// request. First match wins:
//
//  1. admin visits are always authorized
//  2. an unconfigured billing integration cannot enforce a paywall (dev mode)
//  3. without a session id in the query there is nothing to validate
//  4. a session id that cannot be validated never grants access (fail closed)
//  5. only an active or trialing subscription grants access
//
// The visit state is only read; a fresh remote lookup is performed on every
// evaluation.
func (g *Gate) EvaluateAccess(ctx context.Context, visit *VisitState, query url.Values) bool {
	if visit != nil && visit.IsAdmin {
		metrics.GateDecisions.WithLabelValues("authorized", "admin").Inc()
		return true
	}
	if !g.cfg.BillingConfigured() {
		metrics.GateDecisions.WithLabelValues("authorized", "dev_mode").Inc()
		return true
	}

	sessionID := strings.TrimSpace(query.Get(billing.SessionIDParam))
	if sessionID == "" {
		metrics.GateDecisions.WithLabelValues("unauthorized", "no_session").Inc()
		return false
	}

	result, err := g.lookup.LookupSession(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("Subscription lookup failed, denying access")
		metrics.GateDecisions.WithLabelValues("unauthorized", "lookup_failed").Inc()
		return false
	}

	if StatusAuthorized(result.Status) {
		metrics.GateDecisions.WithLabelValues("authorized", "subscription").Inc()
		return true
	}
	metrics.GateDecisions.WithLabelValues("unauthorized", "subscription_inactive").Inc()
	return false
}

// StatusAuthorized reports whether a Stripe subscription status grants
// access to protected content. Unknown statuses fail closed.
func StatusAuthorized(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	default:
		return false
	}
}

// AttemptAdminLogin sets the admin flag on the visit iff the supplied
// password matches the configured admin password. The comparison takes the
// same path whether or not a password is configured, so a probe cannot
// distinguish "wrong password" from "no password set".
func (g *Gate) AttemptAdminLogin(visit *VisitState, supplied string) bool {
	if visit == nil {
		return false
	}

	ok := false
	switch {
	case g.cfg.AdminPasswordHash != "":
		ok = auth.CheckPasswordHash(supplied, g.cfg.AdminPasswordHash)
	default:
		// The compare runs even when no password is configured, so the
		// empty-config case costs the same as a wrong password.
		match := auth.ConstantTimeEquals(supplied, g.cfg.AdminPassword)
		ok = match && g.cfg.AdminPassword != ""
	}

	if ok {
		visit.IsAdmin = true
		log.Info().Msg("Admin unlock granted")
	}
	return ok
}

// IsAdminEmail reports whether an email matches the configured admin email.
func (g *Gate) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	return email != "" && email == g.cfg.AdminEmail
}
