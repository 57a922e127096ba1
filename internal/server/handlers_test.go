package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlibre/internal/core"
	"chatlibre/internal/languages"
	"chatlibre/internal/translate"
)

// mockCompleter replays a canned completion and counts provider calls.
type mockCompleter struct {
	mu         sync.Mutex
	calls      int
	completion *core.Completion
	err        error
}

func (m *mockCompleter) Complete(_ context.Context, _ core.ChatPayload) (*core.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestServer(t *testing.T, mock *mockCompleter, cfg *Config) *Server {
	t.Helper()
	reg, err := languages.Load("")
	require.NoError(t, err)

	translator := translate.New(mock, translate.NewPromptBuilder(reg))
	apiKey := ""
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	return New(NewHandler(translator, reg, apiKey), cfg)
}

func completionOf(text string) *core.Completion {
	return &core.Completion{
		Text:  text,
		ID:    "chatcmpl-1",
		Model: "gpt-4o-mini",
		Usage: core.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func postJSON(srv *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestTranslateJSON(t *testing.T) {
	mock := &mockCompleter{completion: completionOf("Bonjour le monde")}
	srv := newTestServer(t, mock, nil)

	rec := postJSON(srv, `{"q":"Hello world","source":"en","target":"fr"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp core.TranslationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bonjour le monde", resp.TranslatedText)
	assert.Nil(t, resp.DetectedLanguage)
	assert.Equal(t, 1, mock.callCount())
}

func TestTranslateForm(t *testing.T) {
	mock := &mockCompleter{completion: completionOf("Hallo Welt")}
	srv := newTestServer(t, mock, nil)

	form := url.Values{"q": {"Hello world"}, "source": {"en"}, "target": {"de"}}
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hallo Welt")
}

func TestTranslateDefaultsToDetectMode(t *testing.T) {
	mock := &mockCompleter{completion: completionOf("LANG:fr\nBonjour le monde")}
	srv := newTestServer(t, mock, nil)

	rec := postJSON(srv, `{"q":"Bonjour le monde","target":"en"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp core.TranslationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bonjour le monde", resp.TranslatedText)
	require.NotNil(t, resp.DetectedLanguage)
	assert.Equal(t, "fr", resp.DetectedLanguage.Language)
	assert.EqualValues(t, translate.DetectedConfidence, resp.DetectedLanguage.Confidence)
}

func TestTranslateDetectFallbackWithoutMarker(t *testing.T) {
	mock := &mockCompleter{completion: completionOf("Bonjour le monde")}
	srv := newTestServer(t, mock, nil)

	rec := postJSON(srv, `{"q":"Hello","source":"auto","target":"fr"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bonjour le monde")
	assert.NotContains(t, rec.Body.String(), "detectedLanguage")
}

func TestTranslateMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing q", `{"source":"en","target":"fr"}`, "q"},
		{"empty q", `{"q":"  ","source":"en","target":"fr"}`, "q"},
		{"missing target", `{"q":"Hello","source":"en"}`, "target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCompleter{completion: completionOf("never")}
			srv := newTestServer(t, mock, nil)

			rec := postJSON(srv, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.field)
			assert.Equal(t, 0, mock.callCount(), "validation must precede the provider call")
		})
	}
}

func TestTranslateUnsupportedTarget(t *testing.T) {
	mock := &mockCompleter{completion: completionOf("never")}
	srv := newTestServer(t, mock, nil)

	rec := postJSON(srv, `{"q":"Hello","source":"en","target":"xx"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported target language")
	assert.Equal(t, 0, mock.callCount())
}

func TestTranslateBadFormat(t *testing.T) {
	mock := &mockCompleter{completion: completionOf("never")}
	srv := newTestServer(t, mock, nil)

	rec := postJSON(srv, `{"q":"Hello","source":"en","target":"fr","format":"markdown"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, mock.callCount())
}

func TestTranslateProviderFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"provider down", core.NewProviderError("backend failed", nil), http.StatusBadGateway},
		{"rate limited", core.NewRateLimitError(nil), http.StatusServiceUnavailable},
		{"timeout", core.NewTimeoutError(nil), http.StatusServiceUnavailable},
		{"refusal", core.NewRefusalError(), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCompleter{err: tt.err}
			srv := newTestServer(t, mock, nil)

			rec := postJSON(srv, `{"q":"Hello","source":"en","target":"fr"}`)

			require.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestTranslateAPIKey(t *testing.T) {
	cfg := &Config{APIKey: "secret"}

	t.Run("accepted as body field", func(t *testing.T) {
		mock := &mockCompleter{completion: completionOf("Bonjour")}
		srv := newTestServer(t, mock, cfg)

		rec := postJSON(srv, `{"q":"Hello","source":"en","target":"fr","api_key":"secret"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("accepted as bearer token", func(t *testing.T) {
		mock := &mockCompleter{completion: completionOf("Bonjour")}
		srv := newTestServer(t, mock, cfg)

		req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"q":"Hello","source":"en","target":"fr"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejected when wrong or missing", func(t *testing.T) {
		mock := &mockCompleter{completion: completionOf("never")}
		srv := newTestServer(t, mock, cfg)

		for _, body := range []string{
			`{"q":"Hello","source":"en","target":"fr"}`,
			`{"q":"Hello","source":"en","target":"fr","api_key":"wrong"}`,
		} {
			rec := postJSON(srv, body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		}
		assert.Equal(t, 0, mock.callCount())
	})

	t.Run("languages stays public", func(t *testing.T) {
		srv := newTestServer(t, &mockCompleter{}, cfg)

		req := httptest.NewRequest(http.MethodGet, "/languages", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLanguagesEndpoint(t *testing.T) {
	srv := newTestServer(t, &mockCompleter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/languages", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var langs []core.Language
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &langs))
	require.NotEmpty(t, langs)

	// Second call must be byte-identical.
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/languages", nil))
	assert.Equal(t, rec.Body.Bytes(), rec2.Body.Bytes())
}

func TestIndexBanner(t *testing.T) {
	srv := newTestServer(t, &mockCompleter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "It's running!", rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &mockCompleter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestResponseCarriesRequestID(t *testing.T) {
	srv := newTestServer(t, &mockCompleter{completion: completionOf("Bonjour")}, nil)

	t.Run("generated", func(t *testing.T) {
		rec := postJSON(srv, `{"q":"Hello","source":"en","target":"fr"}`)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("inbound id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-99")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, "req-99", rec.Header().Get(echo.HeaderXRequestID))
	})
}
