package services

import (
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sangha/backend/utils"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeClock lets tests drive day transitions deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	cache  *Cache
	clock  *fakeClock
	logger *log.Logger
}

// newTestEnv builds an isolated environment: a file-backed SQLite record
// store with the full schema and a file-backed cache, both under t.TempDir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "store.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))

	cache, err := OpenCache(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	// Noon in the reference zone on 2024-03-10, a Sunday.
	clock := newFakeClock(time.Date(2024, 3, 10, 12, 0, 0, 0, referenceZone))

	return &testEnv{
		t:      t,
		db:     db,
		cache:  cache,
		clock:  clock,
		logger: log.New(io.Discard, "", 0),
	}
}

// Cleanup drains remote writes before t.TempDir removal runs, so no
// goroutine touches a torn-down database file.
func (e *testEnv) newLedger() *HistoryLedger {
	ledger := NewHistoryLedger(e.db, e.cache, e.clock, e.logger)
	e.t.Cleanup(ledger.Flush)
	return ledger
}

func (e *testEnv) newStats() *StatsAggregator {
	return e.newStatsWith(e.newLedger())
}

func (e *testEnv) newStatsWith(ledger *HistoryLedger) *StatsAggregator {
	stats := NewStatsAggregator(e.db, e.cache, ledger, e.clock, e.logger)
	e.t.Cleanup(stats.Flush)
	return stats
}
