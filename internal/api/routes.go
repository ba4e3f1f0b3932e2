package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/investio/investio/internal/billing"
	"github.com/investio/investio/internal/config"
	"github.com/investio/investio/internal/gate"
	"github.com/investio/investio/internal/marketdata"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Config  *config.Config
	Gate    *gate.Gate
	Billing *billing.Client
	Market  *marketdata.Client
	Visits  *VisitStore
}

// RegisterRoutes wires all endpoints onto the mux.
func RegisterRoutes(mux *http.ServeMux, deps Deps) {
	h := NewHandlers(deps.Config, deps.Gate, deps.Billing, deps.Market, deps.Visits)

	mux.HandleFunc("/", h.HandleDashboard)
	mux.HandleFunc("/login", h.HandleLogin)
	mux.HandleFunc("/admin/login", h.HandleAdminLogin)
	mux.HandleFunc("/logout", h.HandleLogout)
	mux.HandleFunc("/billing/checkout", h.HandleCheckout)
	mux.HandleFunc("/billing/portal", h.HandlePortal)
	mux.HandleFunc("/api/history", h.HandleHistory)
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
}
