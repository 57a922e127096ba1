package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatlibre/internal/core"
)

// Server wraps the echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server options.
type Config struct {
	// APIKey, when set, is required as the api_key field on /translate.
	APIKey string
	// MetricsEnabled exposes prometheus metrics.
	MetricsEnabled bool
	// MetricsEndpoint is the metrics path (default /metrics).
	MetricsEndpoint string
	// BodyLimit caps request body size (echo syntax, default "256K").
	// Mastodon posts are small; anything bigger is abuse.
	BodyLimit string
}

// New builds the HTTP server and its routes.
func New(handler *Handler, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	bodyLimit := "256K"
	if cfg != nil && cfg.BodyLimit != "" {
		bodyLimit = cfg.BodyLimit
	}

	e.Use(requestIDMiddleware())
	e.Use(requestLogMiddleware())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	// The LibreTranslate surface Mastodon talks to.
	e.GET("/", handler.Index)
	e.GET("/health", handler.Health)
	e.GET("/languages", handler.Languages)
	e.POST("/translate", handler.Translate)

	if cfg != nil && cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	return &Server{echo: e, handler: handler}
}

// Start serves on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Serve serves on a pre-built listener (systemd socket activation).
func (s *Server) Serve(ln net.Listener) error {
	s.echo.Listener = ln
	return s.echo.Start("")
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler so the server works with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// requestIDMiddleware honors an inbound X-Request-ID or generates one, echoes
// it on the response, and threads it through the request context for the
// provider call and usage records.
func requestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			ctx := core.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// requestLogMiddleware bridges echo's request logging into slog.
func requestLogMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		},
	})
}
