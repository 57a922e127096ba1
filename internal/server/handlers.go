// Package server exposes the LibreTranslate-compatible HTTP surface.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"chatlibre/internal/core"
	"chatlibre/internal/languages"
	"chatlibre/internal/translate"
)

// Handler holds the HTTP handlers.
type Handler struct {
	translator *translate.Translator
	registry   *languages.Registry
	apiKey     string
}

// NewHandler creates the handler set. apiKey may be empty, in which case
// /translate is open.
func NewHandler(translator *translate.Translator, registry *languages.Registry, apiKey string) *Handler {
	return &Handler{
		translator: translator,
		registry:   registry,
		apiKey:     apiKey,
	}
}

// translateRequest is the wire shape of POST /translate. Mastodon sends JSON;
// the real LibreTranslate also takes form and query encoding, so all three
// bind.
type translateRequest struct {
	Q      string `json:"q" form:"q" query:"q"`
	Source string `json:"source" form:"source" query:"source"`
	Target string `json:"target" form:"target" query:"target"`
	Format string `json:"format" form:"format" query:"format"`
	APIKey string `json:"api_key" form:"api_key" query:"api_key"`
}

// Translate handles POST /translate.
func (h *Handler) Translate(c echo.Context) error {
	var body translateRequest
	if err := c.Bind(&body); err != nil {
		return handleError(c, core.NewInvalidRequestError("could not parse request body", err))
	}

	if !apiKeyAccepted(c, h.apiKey, body.APIKey) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "invalid api key"})
	}

	req, parseErr := parseTranslationRequest(body)
	if parseErr != nil {
		return handleError(c, parseErr)
	}

	resp, err := h.translator.Translate(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Languages handles GET /languages.
func (h *Handler) Languages(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.List())
}

// Index handles GET /.
func (h *Handler) Index(c echo.Context) error {
	return c.String(http.StatusOK, "It's running!")
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// parseTranslationRequest validates field presence and shape. Values are
// trimmed but otherwise passed through unchanged; in particular language-code
// case is preserved.
func parseTranslationRequest(body translateRequest) (core.TranslationRequest, error) {
	q := strings.TrimSpace(body.Q)
	if q == "" {
		return core.TranslationRequest{}, core.NewMissingFieldError("q")
	}

	target := strings.TrimSpace(body.Target)
	if target == "" {
		return core.TranslationRequest{}, core.NewMissingFieldError("target")
	}

	source := strings.TrimSpace(body.Source)
	if source == "" {
		source = core.SourceAuto
	}

	format := strings.TrimSpace(body.Format)
	switch format {
	case "":
		format = core.FormatText
	case core.FormatText, core.FormatHTML:
	default:
		return core.TranslationRequest{}, core.NewInvalidRequestError("format must be \"text\" or \"html\"", nil)
	}

	return core.TranslationRequest{
		Query:  q,
		Source: source,
		Target: target,
		Format: format,
	}, nil
}

// handleError renders a ShimError as the LibreTranslate error body. Wrapped
// causes stay in the log; the client sees only the safe message.
func handleError(c echo.Context, err error) error {
	var shimErr *core.ShimError
	if errors.As(err, &shimErr) {
		if shimErr.HTTPStatus() >= http.StatusInternalServerError {
			slog.Warn("translation failed", "kind", shimErr.Kind, "error", err)
		}
		return c.JSON(shimErr.HTTPStatus(), shimErr.Body())
	}

	slog.Error("unexpected error", "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "an unexpected error occurred",
	})
}
