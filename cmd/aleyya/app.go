package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Dmetrikx/aleyya/internal/config"
	"github.com/Dmetrikx/aleyya/internal/conversation"
	"github.com/Dmetrikx/aleyya/internal/gateway"
	"github.com/Dmetrikx/aleyya/internal/logging"
	"github.com/Dmetrikx/aleyya/internal/metrics"
	"github.com/Dmetrikx/aleyya/internal/prefs"
)

// app holds the process-wide dependencies a command needs
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *prefs.SQLiteStore
	metrics *metrics.Metrics

	closers []func() error
}

// open loads configuration and opens the preference store
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)

	store, err := prefs.OpenSQLite(cfg.PrefsPath)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	ctx := cmd.Context()
	if err := a.seedAPIKey(ctx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	a.metrics = metrics.New(reg)
	if cfg.MetricsAddr != "" {
		a.serveMetrics(ctx, reg)
	}

	return nil
}

// seedAPIKey copies OPENROUTER_API_KEY into the store when it holds no key
// and the user has not cleared one
func (a *app) seedAPIKey(ctx context.Context) error {
	if a.cfg.APIKey == "" {
		return nil
	}
	cleared, err := prefs.APIKeyCleared(ctx, a.store)
	if err != nil {
		return fmt.Errorf("failed to read api key state: %w", err)
	}
	if cleared {
		a.logger.DebugContext(ctx, "skipping api key seed after explicit clear")
		return nil
	}
	existing, err := prefs.GetString(ctx, a.store, prefs.KeyAPIKey)
	if err != nil {
		return fmt.Errorf("failed to read api key: %w", err)
	}
	if existing != "" {
		return nil
	}
	if err := a.store.Set(ctx, prefs.KeyAPIKey, a.cfg.APIKey); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	a.logger.InfoContext(ctx, "seeded api key from environment",
		"key_fingerprint", gateway.KeyFingerprint(a.cfg.APIKey))
	return nil
}

func (a *app) serveMetrics(ctx context.Context, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.ErrorContext(ctx, "metrics server stopped", "addr", a.cfg.MetricsAddr, "error", err)
		}
	}()
	a.logger.InfoContext(ctx, "serving metrics", "addr", a.cfg.MetricsAddr)

	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// clientFactory builds gateway clients on the configured transport
func (a *app) clientFactory() conversation.ClientFactory {
	opts := []gateway.Option{
		gateway.WithBaseURL(a.cfg.BaseURL),
		gateway.WithLogger(a.logger),
	}
	if a.cfg.Transport == config.TransportSDK {
		return func(apiKey string) gateway.Client {
			return gateway.NewSDKClient(apiKey, opts...)
		}
	}
	return func(apiKey string) gateway.Client {
		return gateway.NewHTTPClient(apiKey, opts...)
	}
}

// newController creates a conversation controller wired to the store
func (a *app) newController(ctx context.Context) (*conversation.Controller, error) {
	return conversation.New(ctx, conversation.Options{
		Store:        a.store,
		NewClient:    a.clientFactory(),
		Logger:       a.logger,
		Metrics:      a.metrics,
		StalePolicy:  a.cfg.Stale(),
		MaxImageEdge: a.cfg.MaxImageEdge,
		DefaultModel: a.cfg.DefaultModel,
	})
}

// historyPath keeps the REPL history next to the preference database
func (a *app) historyPath() string {
	return filepath.Join(filepath.Dir(a.cfg.PrefsPath), "chat_history")
}

// close releases everything open opened, newest first
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// run wraps a command body with open and close
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		if err := a.open(cmd); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}
