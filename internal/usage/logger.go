package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is an async buffered Writer: entries are queued on a channel and
// flushed to the Store in batches, either when the buffer fills or on a
// ticker. Write never blocks the request path; when the buffer is full the
// entry is dropped with a warning.
type Logger struct {
	store         Store
	buffer        chan *Entry
	done          chan struct{}
	wg            sync.WaitGroup
	writes        sync.WaitGroup
	flushInterval time.Duration
	closed        atomic.Bool
}

// NewLogger starts the background flush goroutine and returns the logger.
// The caller must Close it during shutdown to flush remaining entries.
func NewLogger(store Store, cfg Config) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	l := &Logger{
		store:         store,
		buffer:        make(chan *Entry, cfg.BufferSize),
		done:          make(chan struct{}),
		flushInterval: cfg.FlushInterval,
	}

	l.wg.Add(1)
	go l.flushLoop()

	return l
}

// Write queues an entry for async persistence.
func (l *Logger) Write(entry *Entry) {
	if entry == nil || l.closed.Load() {
		return
	}

	// Track in-flight writes so Close cannot tear down the buffer while a
	// send is pending.
	l.writes.Add(1)
	defer l.writes.Done()
	if l.closed.Load() {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		slog.Warn("usage buffer full, dropping entry", "request_id", entry.RequestID)
	}
}

// Close stops the flush loop, flushes buffered entries and closes the store.
// Idempotent.
func (l *Logger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}

	l.writes.Wait()
	close(l.done)
	l.wg.Wait()

	return l.store.Close()
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.flush()
		case <-l.done:
			l.flush()
			return
		}
	}
}

// flush drains the buffer and writes one batch.
func (l *Logger) flush() {
	var batch []*Entry
	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
		default:
			if len(batch) == 0 {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := l.store.WriteBatch(ctx, batch); err != nil {
				slog.Error("failed to flush usage entries", "count", len(batch), "error", err)
			}
			cancel()
			return
		}
	}
}
