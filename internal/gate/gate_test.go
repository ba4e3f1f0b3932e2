package gate

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/investio/investio/internal/auth"
	"github.com/investio/investio/internal/billing"
	"github.com/investio/investio/internal/config"
)

type stubLookup struct {
	result *billing.SessionLookup
	err    error

	calls     int
	lastID    string
	lastCtxOK bool
}

func (s *stubLookup) LookupSession(ctx context.Context, sessionID string) (*billing.SessionLookup, error) {
	s.calls++
	s.lastID = sessionID
	s.lastCtxOK = ctx != nil
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func billingConfig() *config.Config {
	return &config.Config{
		StripeSecretKey:      "sk_test_123",
		StripePriceIDMonthly: "price_monthly",
		StripePriceIDYearly:  "price_yearly",
		BaseURL:              "https://app.example.com",
	}
}

func TestEvaluateAccessAdminBypass(t *testing.T) {
	lookup := &stubLookup{err: fmt.Errorf("must not be called")}
	g := New(billingConfig(), lookup)

	visit := &VisitState{IsAdmin: true}
	query := url.Values{billing.SessionIDParam: {"cs_test_123"}}

	if !g.EvaluateAccess(context.Background(), visit, query) {
		t.Fatal("admin visit should be authorized")
	}
	if lookup.calls != 0 {
		t.Errorf("admin bypass performed %d remote lookups, want 0", lookup.calls)
	}
}

func TestEvaluateAccessDevModeWhenUnconfigured(t *testing.T) {
	missingYearly := billingConfig()
	missingYearly.StripePriceIDYearly = ""
	missingKey := billingConfig()
	missingKey.StripeSecretKey = ""

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"empty config", &config.Config{}},
		{"missing yearly price", missingYearly},
		{"missing secret key", missingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &stubLookup{err: fmt.Errorf("must not be called")}
			g := New(tt.cfg, lookup)

			if !g.EvaluateAccess(context.Background(), &VisitState{}, url.Values{}) {
				t.Fatal("incomplete billing config should authorize everyone")
			}
			if lookup.calls != 0 {
				t.Errorf("dev mode performed %d remote lookups, want 0", lookup.calls)
			}
		})
	}
}

func TestEvaluateAccessNoSession(t *testing.T) {
	lookup := &stubLookup{err: fmt.Errorf("must not be called")}
	g := New(billingConfig(), lookup)

	tests := []struct {
		name  string
		query url.Values
	}{
		{"empty query", url.Values{}},
		{"blank session id", url.Values{billing.SessionIDParam: {"   "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if g.EvaluateAccess(context.Background(), &VisitState{}, tt.query) {
				t.Error("missing session id should not authorize")
			}
		})
	}
	if lookup.calls != 0 {
		t.Errorf("missing session performed %d remote lookups, want 0", lookup.calls)
	}
}

func TestEvaluateAccessLookupFailureDenies(t *testing.T) {
	lookup := &stubLookup{err: fmt.Errorf("stripe: boom")}
	g := New(billingConfig(), lookup)

	query := url.Values{billing.SessionIDParam: {"cs_test_123"}}
	if g.EvaluateAccess(context.Background(), &VisitState{}, query) {
		t.Fatal("failed lookup must deny access")
	}
	if lookup.calls != 1 {
		t.Errorf("got %d remote lookups, want 1", lookup.calls)
	}
	if lookup.lastID != "cs_test_123" {
		t.Errorf("lookup used session id %q, want %q", lookup.lastID, "cs_test_123")
	}
}

func TestEvaluateAccessBySubscriptionStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"active", true},
		{"trialing", true},
		{"Active", true},
		{"canceled", false},
		{"past_due", false},
		{"unpaid", false},
		{"incomplete", false},
		{"paused", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("status_"+tt.status, func(t *testing.T) {
			lookup := &stubLookup{result: &billing.SessionLookup{
				SessionID: "cs_test_123",
				Status:    tt.status,
			}}
			g := New(billingConfig(), lookup)
			query := url.Values{billing.SessionIDParam: {"cs_test_123"}}

			got := g.EvaluateAccess(context.Background(), &VisitState{}, query)
			if got != tt.want {
				t.Errorf("status %q authorized = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestEvaluateAccessFreshLookupEveryCall(t *testing.T) {
	lookup := &stubLookup{result: &billing.SessionLookup{Status: "active"}}
	g := New(billingConfig(), lookup)
	query := url.Values{billing.SessionIDParam: {"cs_test_123"}}

	for i := 0; i < 3; i++ {
		g.EvaluateAccess(context.Background(), &VisitState{}, query)
	}
	if lookup.calls != 3 {
		t.Errorf("got %d remote lookups, want 3 (no caching)", lookup.calls)
	}
}

func TestStatusAuthorized(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"active", true},
		{"  ACTIVE  ", true},
		{"trialing", true},
		{"canceled", false},
		{"unknown_status", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := StatusAuthorized(tt.status); got != tt.want {
				t.Errorf("StatusAuthorized(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestAttemptAdminLoginPlaintext(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		supplied   string
		want       bool
	}{
		{"exact match", "hunter2hunter2", "hunter2hunter2", true},
		{"wrong password", "hunter2hunter2", "nope", false},
		{"case sensitive", "hunter2hunter2", "Hunter2hunter2", false},
		{"no trimming", "hunter2hunter2", " hunter2hunter2 ", false},
		{"unconfigured rejects everything", "", "", false},
		{"unconfigured rejects non-empty", "", "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&config.Config{AdminPassword: tt.configured}, nil)
			visit := &VisitState{}

			got := g.AttemptAdminLogin(visit, tt.supplied)
			if got != tt.want {
				t.Errorf("AttemptAdminLogin = %v, want %v", got, tt.want)
			}
			if visit.IsAdmin != tt.want {
				t.Errorf("visit.IsAdmin = %v, want %v", visit.IsAdmin, tt.want)
			}
		})
	}
}

func TestAttemptAdminLoginHash(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	g := New(&config.Config{AdminPasswordHash: hash}, nil)
	visit := &VisitState{}
	if !g.AttemptAdminLogin(visit, "correct horse battery") {
		t.Fatal("matching password must unlock against a bcrypt hash")
	}
	if !visit.IsAdmin {
		t.Error("visit.IsAdmin not set after hash unlock")
	}

	g = New(&config.Config{AdminPasswordHash: "$invalid$hash"}, nil)
	if g.AttemptAdminLogin(&VisitState{}, "anything") {
		t.Error("malformed hash must reject all passwords")
	}

	g = New(&config.Config{AdminPasswordHash: hash, AdminPassword: "plaintext-ignored"}, nil)
	if g.AttemptAdminLogin(&VisitState{}, "plaintext-ignored") {
		t.Error("hash must take precedence over plaintext config")
	}
}

func TestAttemptAdminLoginNilVisit(t *testing.T) {
	g := New(&config.Config{AdminPassword: "hunter2hunter2"}, nil)
	if g.AttemptAdminLogin(nil, "hunter2hunter2") {
		t.Error("nil visit must not authorize")
	}
}

func TestIsAdminEmail(t *testing.T) {
	g := New(&config.Config{AdminEmail: "admin@example.com"}, nil)

	tests := []struct {
		email string
		want  bool
	}{
		{"admin@example.com", true},
		{"ADMIN@example.com", true},
		{"  admin@example.com  ", true},
		{"other@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := g.IsAdminEmail(tt.email); got != tt.want {
			t.Errorf("IsAdminEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}

	unconfigured := New(&config.Config{}, nil)
	if unconfigured.IsAdminEmail("") {
		t.Error("empty email must not match an unconfigured admin email")
	}
}
