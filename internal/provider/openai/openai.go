// Package openai invokes an OpenAI-compatible chat-completions endpoint. It
// is a thin boundary around the provider contract: one non-streaming call per
// translation, no retries, no batching.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"chatlibre/internal/core"
	"chatlibre/internal/httpclient"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider error bodies are small; anything beyond this is garbage.
const maxResponseBytes = 1 << 20

// Config holds the provider connection settings.
type Config struct {
	// APIKey authenticates against the provider. Never logged.
	APIKey string
	// BaseURL overrides the API root, e.g. for a local proxy.
	BaseURL string
	// Model is the chat model to request.
	Model string
	// Temperature is passed through to the provider.
	Temperature float64
}

// Client implements core.Completer against an OpenAI-compatible API.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

// New creates a Client using the shared transport defaults.
func New(cfg Config) *Client {
	return NewWithHTTPClient(cfg, httpclient.New(httpclient.Config{}))
}

// NewWithHTTPClient creates a Client with a caller-supplied *http.Client,
// which also carries the request timeout.
func NewWithHTTPClient(cfg Config, hc *http.Client) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:        hc,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Complete sends the system/user pair as a two-message chat exchange and
// returns the normalized completion. The inbound request context flows into
// the HTTP call, so a dropped caller connection aborts the provider call.
func (c *Client) Complete(ctx context.Context, payload core.ChatPayload) (*core.Completion, error) {
	temp := c.temperature
	body := core.ChatRequest{
		Model: c.model,
		Messages: []core.Message{
			{Role: "system", Content: payload.System},
			{Role: "user", Content: payload.User},
		},
		Temperature: &temp,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, core.NewProviderError("failed to encode provider request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, core.NewProviderError("failed to build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if requestID := core.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Client-Request-Id", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, core.ParseProviderError(resp.StatusCode, respBody)
	}

	var chat core.ChatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, core.NewMalformedReplyError("translation backend returned an undecodable reply", err)
	}
	if len(chat.Choices) == 0 {
		return nil, core.NewMalformedReplyError("translation backend returned no completion", nil)
	}

	choice := chat.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, core.NewRefusalError()
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return nil, core.NewMalformedReplyError("translation backend returned an empty reply", nil)
	}

	return &core.Completion{
		Text:  text,
		ID:    chat.ID,
		Model: chat.Model,
		Usage: chat.Usage,
	}, nil
}

// classifyTransportError separates deadline expiry from other network faults.
// Caller cancellation is passed through so the handler can tell a dead client
// from a dead provider.
func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("provider call aborted: %w", ctx.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewTimeoutError(err)
	}
	return core.NewProviderError("translation backend is unreachable", err)
}
