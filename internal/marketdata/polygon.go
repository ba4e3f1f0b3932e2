// Package marketdata fetches daily price history from Polygon.io.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	svcerrors "github.com/investio/investio/internal/errors"
	"github.com/investio/investio/internal/metrics"
)

const (
	defaultBaseURL = "https://api.polygon.io"
	requestTimeout = 10 * time.Second

	// LookbackDays is the price history window shown on the dashboard.
	LookbackDays = 30
)

// Bar is one daily OHLC row.
type Bar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type polygonBar struct {
	T int64   `json:"t"` // ms epoch
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type polygonResp struct {
	Results []polygonBar `json:"results"`
}

// Client fetches aggregates from the Polygon REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Polygon client. The default HTTP client carries a
// bounded timeout so a stalled provider cannot hang a page render.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// PriceHistory returns roughly one month of daily bars for a ticker, oldest
// first. An empty slice is a valid response meaning "no data"; only
// transport or provider errors are returned as errors.
func (c *Client) PriceHistory(ctx context.Context, ticker string) ([]Bar, error) {
	const op = "price_history"

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, svcerrors.NewValidationError(op, fmt.Errorf("empty ticker"))
	}
	if !c.Configured() {
		return nil, svcerrors.NewConfigurationError(op, fmt.Errorf("polygon api key not configured"))
	}

	timer := prometheus.NewTimer(metrics.PriceHistoryDuration)
	defer timer.ObserveDuration()

	now := c.now()
	from := now.AddDate(0, 0, -LookbackDays).Format("2006-01-02")
	to := now.Format("2006-01-02")

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&apiKey=%s",
		c.baseURL, url.PathEscape(ticker), from, to, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, svcerrors.NewProviderError(op, fmt.Errorf("build request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(op, "error").Inc()
		return nil, svcerrors.NewProviderError(op, fmt.Errorf("fetch daily bars for %s: %w", ticker, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderCalls.WithLabelValues(op, "error").Inc()
		return nil, svcerrors.NewProviderError(op, fmt.Errorf("polygon: %s", resp.Status))
	}

	var pr polygonResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		metrics.ProviderCalls.WithLabelValues(op, "error").Inc()
		return nil, svcerrors.NewProviderError(op, fmt.Errorf("decode daily bars for %s: %w", ticker, err))
	}
	metrics.ProviderCalls.WithLabelValues(op, "ok").Inc()

	bars := make([]Bar, 0, len(pr.Results))
	for _, b := range pr.Results {
		bars = append(bars, Bar{
			Date:   time.UnixMilli(b.T).UTC().Format("2006-01-02"),
			Open:   b.O,
			High:   b.H,
			Low:    b.L,
			Close:  b.C,
			Volume: b.V,
		})
	}
	return bars, nil
}

// Tail returns the last n bars of a series, or the whole series when it is
// shorter than n.
func Tail(bars []Bar, n int) []Bar {
	if n <= 0 || len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}
