package api

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/investio/investio/internal/marketdata"
)

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Investio</title>
  <style>
    :root { color-scheme: light; }
    body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background: linear-gradient(140deg, #f8fafc, #e2e8f0); color: #0f172a; }
    .wrap { max-width: 860px; margin: 36px auto; padding: 0 16px; }
    .card { background: #fff; border-radius: 12px; border: 1px solid #e2e8f0; box-shadow: 0 8px 30px rgba(15,23,42,.08); padding: 24px; margin-bottom: 16px; }
    h1 { margin: 0 0 8px; font-size: 28px; }
    h2 { margin: 0 0 12px; font-size: 20px; }
    p { margin: 0 0 14px; line-height: 1.5; color: #334155; }
    .error { background: #fef2f2; color: #991b1b; border: 1px solid #fecaca; border-radius: 8px; padding: 10px 12px; margin-bottom: 12px; font-size: 14px; }
    .note { background: #f0fdf4; color: #166534; border: 1px solid #bbf7d0; border-radius: 8px; padding: 10px 12px; margin-bottom: 12px; font-size: 14px; }
    label { display: block; margin: 12px 0 6px; font-size: 14px; font-weight: 600; color: #0f172a; }
    input, select { width: 100%; box-sizing: border-box; border: 1px solid #cbd5e1; border-radius: 8px; padding: 10px 12px; font-size: 15px; }
    .cta { margin-top: 14px; border: 0; border-radius: 10px; background: #1d4ed8; color: #fff; font-size: 15px; font-weight: 600; padding: 11px 16px; width: 100%; cursor: pointer; }
    .cta:hover { background: #1e40af; }
    .cta.secondary { background: #475569; }
    .cta.secondary:hover { background: #334155; }
    .row { display: grid; gap: 16px; grid-template-columns: 1fr; }
    @media (min-width: 720px) { .row { grid-template-columns: 1fr 1fr; } }
    table { width: 100%; border-collapse: collapse; font-size: 14px; }
    th, td { text-align: right; padding: 6px 8px; border-bottom: 1px solid #e2e8f0; }
    th:first-child, td:first-child { text-align: left; }
    .fine { font-size: 12px; color: #64748b; margin-top: 12px; }
    svg { width: 100%; height: auto; }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="card">
      <h1>Investio</h1>
      <p>Price history for any ticker, for subscribers.</p>
      {{if .ErrorMessage}}<div class="error">{{.ErrorMessage}}</div>{{end}}
      {{if .Notice}}<div class="note">{{.Notice}}</div>{{end}}
      {{if .Cancelled}}<div class="note">Checkout was cancelled. You can start again below.</div>{{end}}
    </div>

    {{if not .LoggedIn}}
    <div class="card">
      <h2>Sign In</h2>
      <form method="POST" action="/login">
        <label for="email">Email</label>
        <input id="email" name="email" type="email" value="{{.Email}}" autocomplete="email" required>
        <button class="cta" type="submit">Sign In</button>
      </form>
    </div>
    {{else}}
    <div class="card">
      <p>Signed in as <strong>{{.Email}}</strong>{{if .IsAdmin}} (admin){{end}}.</p>
      <form method="POST" action="/logout">
        <button class="cta secondary" type="submit">Sign Out</button>
      </form>
    </div>
    {{end}}

    {{if not .Authorized}}
    <div class="row">
      {{if .BillingConfigured}}
      <div class="card">
        <h2>Subscribe</h2>
        <form method="POST" action="/billing/checkout">
          <label for="checkout-email">Email</label>
          <input id="checkout-email" name="email" type="email" value="{{.Email}}" autocomplete="email" required>
          <label for="plan">Plan</label>
          <select id="plan" name="plan">
            <option value="monthly">Monthly</option>
            <option value="yearly">Yearly</option>
          </select>
          <button class="cta" type="submit">Continue To Secure Checkout</button>
        </form>
      </div>
      {{end}}
      {{if .AdminConfigured}}
      <div class="card">
        <h2>Admin Unlock</h2>
        <form method="POST" action="/admin/login">
          <label for="password">Admin Password</label>
          <input id="password" name="password" type="password" autocomplete="current-password" required>
          <button class="cta secondary" type="submit">Unlock</button>
        </form>
      </div>
      {{end}}
    </div>
    {{end}}

    {{if .Authorized}}
    <div class="card">
      <h2>Price History</h2>
      <form method="GET" action="/">
        {{if .SessionID}}<input type="hidden" name="session_id" value="{{.SessionID}}">{{end}}
        <label for="ticker">Ticker</label>
        <input id="ticker" name="ticker" type="text" value="{{.Ticker}}" placeholder="AAPL" required>
        <button class="cta" type="submit">Load</button>
      </form>
    </div>
    {{if .HasData}}
    {{if .Chart}}
    <div class="card">
      <h2>{{.Ticker}} Closing Prices, Last Month</h2>
      {{.Chart}}
    </div>
    {{end}}
    <div class="card">
      <h2>Last {{len .Bars}} Sessions</h2>
      <table>
        <tr><th>Date</th><th>Open</th><th>High</th><th>Low</th><th>Close</th><th>Volume</th></tr>
        {{range .Bars}}
        <tr><td>{{.Date}}</td><td>{{printf "%.2f" .Open}}</td><td>{{printf "%.2f" .High}}</td><td>{{printf "%.2f" .Low}}</td><td>{{printf "%.2f" .Close}}</td><td>{{printf "%.0f" .Volume}}</td></tr>
        {{end}}
      </table>
    </div>
    {{else if .Ticker}}
    <div class="card"><p>No data for {{.Ticker}} in the last month.</p></div>
    {{end}}
    {{if .CanManageBilling}}
    <div class="card">
      <h2>Billing</h2>
      <form method="POST" action="/billing/portal">
        <button class="cta secondary" type="submit">Manage Subscription</button>
      </form>
    </div>
    {{end}}
    {{end}}

    <p class="fine">Market data is delayed and informational only, not investment advice.</p>
  </div>
</body>
</html>
`))

type dashboardData struct {
	Email             string
	ErrorMessage      string
	Notice            string
	Cancelled         bool
	LoggedIn          bool
	IsAdmin           bool
	Authorized        bool
	BillingConfigured bool
	AdminConfigured   bool
	CanManageBilling  bool
	SessionID         string
	Ticker            string
	HasData           bool
	Chart             template.HTML
	Bars              []marketdata.Bar
}

const (
	chartWidth   = 720
	chartHeight  = 260
	chartPadding = 40
)

// buildChartSVG renders the closing-price series as an inline SVG line
// chart. Returns "" for series too short to draw a line.
func buildChartSVG(bars []marketdata.Bar) template.HTML {
	if len(bars) < 2 {
		return ""
	}

	minClose, maxClose := bars[0].Close, bars[0].Close
	for _, b := range bars {
		if b.Close < minClose {
			minClose = b.Close
		}
		if b.Close > maxClose {
			maxClose = b.Close
		}
	}
	span := maxClose - minClose
	if span == 0 {
		span = 1
	}

	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)

	var points strings.Builder
	for i, b := range bars {
		x := float64(chartPadding) + plotW*float64(i)/float64(len(bars)-1)
		y := float64(chartPadding) + plotH*(1-(b.Close-minClose)/span)
		if i > 0 {
			points.WriteByte(' ')
		}
		fmt.Fprintf(&points, "%.1f,%.1f", x, y)
	}

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" role="img">`, chartWidth, chartHeight)
	fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%.0f" height="%.0f" fill="#f8fafc" stroke="#e2e8f0"/>`,
		chartPadding, chartPadding, plotW, plotH)
	fmt.Fprintf(&svg, `<polyline fill="none" stroke="#1d4ed8" stroke-width="2" points="%s"/>`, points.String())
	fmt.Fprintf(&svg, `<text x="%d" y="%d" font-size="11" fill="#64748b">%.2f</text>`,
		2, chartPadding+8, maxClose)
	fmt.Fprintf(&svg, `<text x="%d" y="%d" font-size="11" fill="#64748b">%.2f</text>`,
		2, chartHeight-chartPadding, minClose)
	fmt.Fprintf(&svg, `<text x="%d" y="%d" font-size="11" fill="#64748b">%s</text>`,
		chartPadding, chartHeight-8, bars[0].Date)
	fmt.Fprintf(&svg, `<text x="%d" y="%d" font-size="11" fill="#64748b" text-anchor="end">%s</text>`,
		chartWidth-chartPadding, chartHeight-8, bars[len(bars)-1].Date)
	svg.WriteString(`</svg>`)

	return template.HTML(svg.String())
}
