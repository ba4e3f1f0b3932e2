package billing

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/investio/investio/internal/config"
	svcerrors "github.com/investio/investio/internal/errors"
	"github.com/investio/investio/internal/metrics"
)

const (
	// SessionIDParam is the query parameter Stripe substitutes into the
	// success URL on redirect back to the dashboard.
	SessionIDParam = "session_id"

	checkoutSessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

	// providerTimeout bounds every Stripe round-trip. A timed-out lookup
	// counts as a failed lookup and denies access.
	providerTimeout = 10 * time.Second
)

// SessionLookup is the typed result of retrieving a checkout session with
// its subscription expanded. Status is the raw Stripe subscription status
// ("active", "trialing", "canceled", ...); it is empty when the session
// carries no subscription.
type SessionLookup struct {
	SessionID  string
	Status     string
	CustomerID string
	Email      string
}

// Client wraps the Stripe operations the dashboard needs. The stripe-go
// calls are injectable for tests.
type Client struct {
	cfg *config.Config

	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getCheckoutSession    func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

// NewClient creates a billing client backed by the live Stripe API.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:                   cfg,
		createCheckoutSession: checkoutsession.New,
		getCheckoutSession:    checkoutsession.Get,
		createPortalSession:   portalsession.New,
	}
}

// StartCheckout creates a subscription checkout session for the given plan
// and returns the URL the visitor must be redirected to. A single attempt,
// no retry; failures are surfaced to the caller.
func (c *Client) StartCheckout(ctx context.Context, email string, plan config.Plan) (string, error) {
	const op = "start_checkout"

	if !c.cfg.BillingConfigured() {
		return "", svcerrors.NewConfigurationError(op, fmt.Errorf("stripe integration not configured"))
	}
	priceID := c.cfg.PriceID(plan)
	if priceID == "" {
		return "", svcerrors.NewConfigurationError(op, fmt.Errorf("no price configured for plan %q", plan))
	}
	email = strings.TrimSpace(email)
	if !isValidEmail(email) {
		return "", svcerrors.NewValidationError(op, fmt.Errorf("invalid email address"))
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	stripe.Key = c.cfg.StripeSecretKey
	params := &stripe.CheckoutSessionParams{
		Mode:                stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:          stripe.String(buildSuccessURL(c.cfg.BaseURL)),
		CancelURL:           stripe.String(buildAppURL(c.cfg.BaseURL, "/", url.Values{"cancelled": {"1"}})),
		CustomerEmail:       stripe.String(email),
		AllowPromotionCodes: stripe.Bool(true),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"plan":  string(plan),
			"email": email,
		},
	}
	params.Context = ctx

	session, err := c.createCheckoutSession(params)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(op, "error").Inc()
		return "", svcerrors.NewProviderError(op, err)
	}
	metrics.ProviderCalls.WithLabelValues(op, "ok").Inc()
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", svcerrors.NewProviderError(op, fmt.Errorf("stripe returned empty checkout URL"))
	}

	log.Info().
		Str("plan", string(plan)).
		Str("price_id", priceID).
		Msg("Checkout session created")
	return strings.TrimSpace(session.URL), nil
}

// LookupSession retrieves a checkout session with its subscription expanded.
// A fresh lookup is performed on every call; results are never cached.
func (c *Client) LookupSession(ctx context.Context, sessionID string) (*SessionLookup, error) {
	const op = "lookup_session"

	if !c.cfg.BillingConfigured() {
		return nil, svcerrors.NewConfigurationError(op, fmt.Errorf("stripe integration not configured"))
	}
	sessionID = strings.TrimSpace(sessionID)
	if !IsSafeStripeID(sessionID) {
		return nil, svcerrors.NewValidationError(op, fmt.Errorf("malformed session id"))
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	stripe.Key = c.cfg.StripeSecretKey
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")

	session, err := c.getCheckoutSession(sessionID, params)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(op, "error").Inc()
		return nil, svcerrors.NewProviderError(op, err)
	}
	metrics.ProviderCalls.WithLabelValues(op, "ok").Inc()
	if session == nil {
		return nil, svcerrors.NewProviderError(op, fmt.Errorf("stripe returned no session"))
	}

	result := &SessionLookup{SessionID: sessionID}
	if session.Subscription != nil {
		result.Status = string(session.Subscription.Status)
	}
	if session.Customer != nil {
		result.CustomerID = strings.TrimSpace(session.Customer.ID)
	}
	result.Email = strings.TrimSpace(session.CustomerEmail)
	if session.CustomerDetails != nil && strings.TrimSpace(session.CustomerDetails.Email) != "" {
		result.Email = strings.TrimSpace(session.CustomerDetails.Email)
	}
	return result, nil
}

// OpenManagementPortal creates a billing portal session for an established
// customer and returns its URL.
func (c *Client) OpenManagementPortal(ctx context.Context, customerID string) (string, error) {
	const op = "open_management_portal"

	if !c.cfg.BillingConfigured() {
		return "", svcerrors.NewConfigurationError(op, fmt.Errorf("stripe integration not configured"))
	}
	customerID = strings.TrimSpace(customerID)
	if !IsSafeStripeID(customerID) {
		return "", svcerrors.NewValidationError(op, fmt.Errorf("missing or malformed customer id"))
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	stripe.Key = c.cfg.StripeSecretKey
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.cfg.BillingReturnURL),
	}
	params.Context = ctx

	session, err := c.createPortalSession(params)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(op, "error").Inc()
		return "", svcerrors.NewProviderError(op, err)
	}
	metrics.ProviderCalls.WithLabelValues(op, "ok").Inc()
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", svcerrors.NewProviderError(op, fmt.Errorf("stripe returned empty portal URL"))
	}
	return strings.TrimSpace(session.URL), nil
}

// IsSafeStripeID validates that a Stripe ID (cs_..., cus_...) is safe for
// use as a lookup key.
func IsSafeStripeID(stripeID string) bool {
	if len(stripeID) < 5 || len(stripeID) > 128 {
		return false
	}
	for i := 0; i < len(stripeID); i++ {
		c := stripeID[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
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

// buildSuccessURL appends the checkout-complete path with the literal
// session-id placeholder that Stripe substitutes on redirect.
func buildSuccessURL(baseURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed == nil {
		return "/?" + SessionIDParam + "=" + checkoutSessionIDPlaceholder
	}
	encoded := url.Values{
		SessionIDParam: {checkoutSessionIDPlaceholder},
	}.Encode()
	parsed.RawQuery = strings.ReplaceAll(
		encoded,
		url.QueryEscape(checkoutSessionIDPlaceholder),
		checkoutSessionIDPlaceholder,
	)
	return parsed.String()
}

func buildAppURL(baseURL, path string, query url.Values) string {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return path
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return path
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + path
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
