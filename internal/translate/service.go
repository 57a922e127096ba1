// Package translate implements the core of the shim: prompt construction for
// the chat-completion call and mapping of the model's free-text reply back
// into the LibreTranslate response shape.
package translate

import (
	"context"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"chatlibre/internal/core"
	"chatlibre/internal/observability"
	"chatlibre/internal/usage"
)

// Translator runs one translation end-to-end: build prompt, invoke the
// provider, parse the reply. It holds no per-request state.
type Translator struct {
	completer core.Completer
	prompts   *PromptBuilder
	metrics   *observability.Metrics
	usage     usage.Writer
}

// Option configures optional Translator collaborators.
type Option func(*Translator)

// WithMetrics attaches prometheus metrics recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Translator) { t.metrics = m }
}

// WithUsage attaches per-request usage recording.
func WithUsage(w usage.Writer) Option {
	return func(t *Translator) { t.usage = w }
}

// New creates a Translator.
func New(completer core.Completer, prompts *PromptBuilder, opts ...Option) *Translator {
	t := &Translator{completer: completer, prompts: prompts}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate maps a validated request to a provider call and formats the reply.
// Validation failures return before any provider call is made. A request with
// source == target is still forwarded: the backend is always consulted.
func (t *Translator) Translate(ctx context.Context, req core.TranslationRequest) (*core.TranslationResponse, error) {
	mode := "fixed"
	if req.DetectMode() {
		mode = "detect"
	}

	payload, err := t.prompts.Build(req)
	if err != nil {
		t.metrics.RecordTranslation("rejected", mode)
		return nil, err
	}

	start := time.Now()
	completion, err := t.completer.Complete(ctx, payload)
	elapsed := time.Since(start)
	if err != nil {
		t.metrics.RecordTranslation("provider_error", mode)
		return nil, err
	}
	t.metrics.ObserveProviderDuration(elapsed)

	parsed := ParseReply(completion.Text, req.DetectMode())
	if parsed.Text == "" {
		t.metrics.RecordTranslation("malformed_reply", mode)
		return nil, core.NewMalformedReplyError("translation backend returned an empty reply", nil)
	}

	resp := &core.TranslationResponse{TranslatedText: parsed.Text}
	if parsed.Detected != "" {
		resp.DetectedLanguage = &core.DetectedLanguage{
			Language:   parsed.Detected,
			Confidence: DetectedConfidence,
		}
	}

	t.metrics.RecordTranslation("ok", mode)
	t.metrics.AddTokens(completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	t.record(ctx, req, completion, parsed, elapsed)

	// Mirrors the reference service's operational log line: language pair and
	// token spend, never the text itself.
	slog.InfoContext(ctx, "translated",
		"source", req.Source,
		"detected", parsed.Detected,
		"target", req.Target,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"duration_ms", elapsed.Milliseconds(),
	)

	return resp, nil
}

func (t *Translator) record(ctx context.Context, req core.TranslationRequest, completion *core.Completion, parsed ParsedReply, elapsed time.Duration) {
	if t.usage == nil {
		return
	}
	t.usage.Write(&usage.Entry{
		ID:               uuid.NewString(),
		RequestID:        core.GetRequestID(ctx),
		ProviderID:       completion.ID,
		Timestamp:        time.Now().UTC(),
		Model:            completion.Model,
		Source:           req.Source,
		Detected:         parsed.Detected,
		Target:           req.Target,
		Format:           req.Format,
		TextHash:         xxhash.Sum64String(req.Query),
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
		DurationMs:       elapsed.Milliseconds(),
	})
}
