package usage

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(db, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testEntry(id string) *Entry {
	return &Entry{
		ID:               id,
		RequestID:        "req-" + id,
		ProviderID:       "chatcmpl-" + id,
		Timestamp:        time.Now().UTC(),
		Model:            "gpt-4o-mini",
		Source:           "auto",
		Detected:         "fr",
		Target:           "en",
		Format:           "text",
		TextHash:         0xdeadbeef,
		PromptTokens:     42,
		CompletionTokens: 13,
		TotalTokens:      55,
		DurationMs:       120,
	}
}

func TestSQLiteStoreWriteBatch(t *testing.T) {
	store := newTestStore(t)

	entries := []*Entry{testEntry("a"), testEntry("b"), testEntry("c")}
	require.NoError(t, store.WriteBatch(context.Background(), entries))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStoreWriteBatchChunking(t *testing.T) {
	store := newTestStore(t)

	// More entries than fit in a single insert statement.
	entries := make([]*Entry, 0, maxEntriesPerStmt+5)
	for i := 0; i < maxEntriesPerStmt+5; i++ {
		entries = append(entries, testEntry("e"+string(rune('a'+i%26))+string(rune('a'+i/26))))
	}
	require.NoError(t, store.WriteBatch(context.Background(), entries))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(entries), n)
}

// fakeStore records flushed entries in memory for logger tests.
type fakeStore struct {
	mu      sync.Mutex
	entries []*Entry
	closed  bool
}

func (f *fakeStore) WriteBatch(_ context.Context, entries []*Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func TestLoggerFlushesOnClose(t *testing.T) {
	store := &fakeStore{}
	logger := NewLogger(store, Config{BufferSize: 16, FlushInterval: time.Hour})

	logger.Write(testEntry("x"))
	logger.Write(testEntry("y"))

	require.NoError(t, logger.Close())

	assert.Equal(t, 2, store.count())
	assert.True(t, store.closed)
}

func TestLoggerCloseIsIdempotent(t *testing.T) {
	logger := NewLogger(&fakeStore{}, Config{})

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}

func TestLoggerWriteAfterCloseIsSafe(t *testing.T) {
	logger := NewLogger(&fakeStore{}, Config{})

	require.NoError(t, logger.Close())
	logger.Write(testEntry("late")) // must not panic
}

func TestLoggerConcurrentWrites(t *testing.T) {
	store := &fakeStore{}
	logger := NewLogger(store, Config{BufferSize: 512, FlushInterval: 10 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Write(testEntry(string(rune('a'+worker)) + "-" + string(rune('a'+j%26))))
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, logger.Close())

	assert.Equal(t, 160, store.count())
}

func TestNopWriterDiscards(t *testing.T) {
	var w Writer = Nop{}
	w.Write(testEntry("ignored"))
	w.Write(nil)
}
