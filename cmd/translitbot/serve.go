package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/translitbot/internal/bootstrap"
	"github.com/at-ishikawa/translitbot/internal/config"
	"github.com/at-ishikawa/translitbot/internal/observe"
	"github.com/at-ishikawa/translitbot/internal/telegram"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive Telegram updates on a webhook and reply to them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			if cfg.Bot.Token == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
			}

			app := bootstrap.New()
			return app.Run(cmd.Context(), func(ctx context.Context) error {
				return serve(ctx, app, cfg)
			})
		},
	}
}

// serve registers its shutdown hooks in dependency order, so the HTTP server
// stops first and the stores close last.
func serve(ctx context.Context, app *bootstrap.App, cfg *config.Config) error {
	s, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("openStores() > %w", err)
	}
	app.AddShutdownHook("stores", func(context.Context) error {
		return s.Close()
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observe.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("observe.NewMetrics() > %w", err)
	}

	application, err := newApplication(ctx, cfg, s, metrics)
	if err != nil {
		return fmt.Errorf("newApplication() > %w", err)
	}
	slog.Default().Info("dictionary loaded",
		"entries", application.index.Len(),
		"categories", len(application.index.Categories()),
		"unknown", application.tracker.Len())

	client := telegram.NewClient(cfg.Bot.APIURL, cfg.Bot.Token, cfg.Bot.MaxRetryAttempts)
	app.AddShutdownHook("telegram client", func(context.Context) error {
		return client.Close()
	})

	handler := telegram.NewWebhookHandler(
		application.dispatcher,
		client,
		telegram.WithSecretToken(cfg.Bot.SecretToken),
		telegram.WithMetrics(metrics),
	)
	app.AddShutdownHook("deliveries", func(ctx context.Context) error {
		return waitDeliveries(ctx, handler)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(newServeMux(cfg.Server, handler, registry), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook("http server", server.Shutdown)

	if cfg.Bot.WebhookURL != "" {
		if err := client.SetWebhook(ctx, cfg.Bot.WebhookURL, cfg.Bot.SecretToken); err != nil {
			return fmt.Errorf("client.SetWebhook() > %w", err)
		}
		slog.Default().Info("webhook registered", "url", cfg.Bot.WebhookURL)
	}

	slog.Default().Info("starting server", "addr", server.Addr, "webhook_path", cfg.Server.WebhookPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe() > %w", err)
	}
	return nil
}

func newServeMux(cfg config.ServerConfig, webhook http.Handler, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.WebhookPath, webhook)
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type waiter interface {
	Wait()
}

// waitDeliveries gives pending replies until ctx is done to reach Telegram.
func waitDeliveries(ctx context.Context, w waiter) error {
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pending deliveries: %w", ctx.Err())
	}
}
