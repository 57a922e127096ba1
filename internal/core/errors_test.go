package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShimErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   ErrorKind
		status int
	}{
		{KindInvalidRequest, http.StatusBadRequest},
		{KindUnsupportedLanguage, http.StatusBadRequest},
		{KindProvider, http.StatusBadGateway},
		{KindRefusal, http.StatusBadGateway},
		{KindMalformedReply, http.StatusBadGateway},
		{KindRateLimit, http.StatusServiceUnavailable},
		{KindTimeout, http.StatusServiceUnavailable},
		{ErrorKind("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := &ShimError{Kind: tt.kind, Message: "m"}
			assert.Equal(t, tt.status, e.HTTPStatus())
		})
	}
}

func TestShimErrorBodyIsFlat(t *testing.T) {
	e := NewUnsupportedLanguageError("xx")
	body := e.Body()
	require.Len(t, body, 1)
	assert.Equal(t, "unsupported target language: xx", body["error"])
}

func TestShimErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := NewProviderError("backend failed", cause)

	var shimErr *ShimError
	require.True(t, errors.As(e, &shimErr))
	assert.Equal(t, KindProvider, shimErr.Kind)
	assert.ErrorIs(t, e, cause)
}

func TestParseProviderError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, KindRateLimit},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`, KindProvider},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"oops"}}`, KindProvider},
		{"plain error string", http.StatusBadRequest, `{"error":"bad params"}`, KindProvider},
		{"non-json body", http.StatusBadGateway, `<html>bad gateway</html>`, KindProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseProviderError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.kind, e.Kind)
		})
	}
}

func TestParseProviderErrorDoesNotEchoBody(t *testing.T) {
	body := []byte(`{"error":{"message":"secret internal detail sk-12345"}}`)
	e := ParseProviderError(http.StatusInternalServerError, body)

	// The caller-visible message must not carry the provider payload; only
	// the wrapped cause (logged server-side) may.
	assert.NotContains(t, e.Message, "sk-12345")
	assert.Contains(t, e.Err.Error(), "sk-12345")
}
