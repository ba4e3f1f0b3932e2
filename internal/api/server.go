package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/investio/investio/internal/billing"
	"github.com/investio/investio/internal/config"
	"github.com/investio/investio/internal/gate"
	"github.com/investio/investio/internal/logging"
	"github.com/investio/investio/internal/marketdata"
)

// Run loads configuration, wires the service together and serves HTTP
// until the context is cancelled or a termination signal arrives.
func Run(ctx context.Context, version string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "investio",
	})
	log.Info().Str("version", version).Msg("Starting Investio")

	if !cfg.BillingConfigured() {
		log.Warn().Msg("Billing not configured; access gate runs in open development mode")
	}

	billingClient := billing.NewClient(cfg)
	market := marketdata.NewClient(cfg.PolygonAPIKey)
	visits := NewVisitStore()
	defer visits.Close()

	mux := http.NewServeMux()
	RegisterRoutes(mux, Deps{
		Config:  cfg,
		Gate:    gate.New(cfg, billingClient),
		Billing: billingClient,
		Market:  market,
		Visits:  visits,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler:           RequestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("Shutdown complete")
	return nil
}
