// Package usage records per-translation token spend and language pairs for
// operational analytics. Source text is never stored; only a hash of it, so
// repeated requests can be correlated without retaining user content.
package usage

import (
	"context"
	"time"
)

// Entry is a single translation usage record.
type Entry struct {
	// ID is a unique identifier for this record (UUID).
	ID string
	// RequestID links the record to the HTTP request log (X-Request-ID).
	RequestID string
	// ProviderID is the provider's completion ID (e.g. "chatcmpl-abc123").
	ProviderID string
	// Timestamp is when the translation completed.
	Timestamp time.Time

	Model    string
	Source   string
	Detected string
	Target   string
	Format   string

	// TextHash is the xxhash64 of the source text.
	TextHash uint64

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	DurationMs       int64
}

// Writer accepts usage entries. Implementations must be non-blocking and safe
// for concurrent use; the request path must never wait on storage.
type Writer interface {
	Write(entry *Entry)
}

// Store is the persistence backend the Logger flushes to.
type Store interface {
	// WriteBatch persists the given entries.
	WriteBatch(ctx context.Context, entries []*Entry) error

	// Close releases the backend.
	Close() error
}

// Config holds usage recording configuration.
type Config struct {
	Enabled       bool
	Path          string
	BufferSize    int
	FlushInterval time.Duration
	RetentionDays int
}

// DefaultConfig returns sensible defaults: recording disabled, small buffer,
// 90-day retention once enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		Path:          ".cache/chatlibre.db",
		BufferSize:    256,
		FlushInterval: 5 * time.Second,
		RetentionDays: 90,
	}
}

// Nop is a Writer that discards every entry. Used when recording is disabled.
type Nop struct{}

func (Nop) Write(*Entry) {}
