// Package main is the entry point for the chatlibre server: a
// LibreTranslate-compatible front for a chat-completion provider.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chatlibre/config"
	"chatlibre/internal/httpclient"
	"chatlibre/internal/languages"
	"chatlibre/internal/listener"
	"chatlibre/internal/logging"
	"chatlibre/internal/observability"
	"chatlibre/internal/provider/openai"
	"chatlibre/internal/server"
	"chatlibre/internal/translate"
	"chatlibre/internal/usage"
	"chatlibre/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Optional .env for local development; ignore when absent.
	_ = godotenv.Load()

	logging.Setup(*logLevel)

	slog.Info("starting chatlibre",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Provider.KeyFromCredentials {
		slog.Info("provider API key loaded from systemd credentials")
	}

	registry, err := languages.Load(cfg.Languages.File)
	if err != nil {
		slog.Error("failed to load language registry", "error", err)
		os.Exit(1)
	}
	slog.Info("language registry loaded", "languages", len(registry.List()))

	completer := openai.NewWithHTTPClient(openai.Config{
		APIKey:      cfg.Provider.APIKey,
		BaseURL:     cfg.Provider.BaseURL,
		Model:       cfg.Provider.Model,
		Temperature: cfg.Provider.Temperature,
	}, httpclient.New(httpclient.Config{Timeout: cfg.Provider.Timeout}))

	opts := []translate.Option{}
	if cfg.Metrics.Enabled {
		opts = append(opts, translate.WithMetrics(observability.NewMetrics()))
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	}

	var usageLogger *usage.Logger
	if cfg.Usage.Enabled {
		store, err := usage.OpenSQLite(cfg.Usage.Path, cfg.Usage.RetentionDays)
		if err != nil {
			slog.Error("failed to open usage store", "error", err)
			os.Exit(1)
		}
		usageLogger = usage.NewLogger(store, usage.Config{
			Enabled:       true,
			Path:          cfg.Usage.Path,
			RetentionDays: cfg.Usage.RetentionDays,
		})
		defer func() {
			if err := usageLogger.Close(); err != nil {
				slog.Error("failed to close usage logger", "error", err)
			}
		}()
		opts = append(opts, translate.WithUsage(usageLogger))
		slog.Info("usage recording enabled",
			"path", cfg.Usage.Path,
			"retention_days", cfg.Usage.RetentionDays,
		)
	}

	translator := translate.New(completer, translate.NewPromptBuilder(registry), opts...)

	if cfg.Server.APIKey == "" {
		slog.Warn("CHATLIBRE_API_KEY not set - /translate accepts unauthenticated requests")
	}

	srv := server.New(
		server.NewHandler(translator, registry, cfg.Server.APIKey),
		&server.Config{
			APIKey:          cfg.Server.APIKey,
			MetricsEnabled:  cfg.Metrics.Enabled,
			MetricsEndpoint: cfg.Metrics.Endpoint,
		},
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	ln, err := listener.Listen(addr)
	if err != nil {
		slog.Error("failed to obtain listener", "error", err)
		os.Exit(1)
	}

	slog.Info("starting server", "address", ln.Addr().String(), "model", cfg.Provider.Model)

	if err := srv.Serve(ln); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}
