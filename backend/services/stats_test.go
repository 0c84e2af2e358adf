package services

import (
	"testing"

	"sangha/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMinutesAccumulatesPerKind(t *testing.T) {
	env := newTestEnv(t)
	stats := env.newStats()

	stats.AddMinutes(1, models.ActivityChant, 10)
	stats.AddMinutes(1, models.ActivityChant, 5)
	stats.AddMinutes(1, models.ActivityBow, 20)
	stats.AddMinutes(1, models.ActivityBreath, 1)

	minutes, total := stats.Totals(1)
	assert.Equal(t, 15, minutes[models.ActivityChant])
	assert.Equal(t, 20, minutes[models.ActivityBow])
	assert.Equal(t, 0, minutes[models.ActivityMindfulness])
	assert.Equal(t, 1, minutes[models.ActivityBreath])
	assert.Equal(t, 36, total)
}

func TestAddMinutesRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	stats := env.newStats()

	stats.AddMinutes(1, models.ActivityChant, 10)
	stats.AddMinutes(1, models.ActivityChant, 0)
	stats.AddMinutes(1, models.ActivityChant, -5)
	stats.AddMinutes(1, models.ActivityKind("running"), 30)

	minutes, total := stats.Totals(1)
	assert.Equal(t, 10, minutes[models.ActivityChant])
	assert.Equal(t, 10, total)
}

func TestAddMinutesPersistsToCacheSynchronously(t *testing.T) {
	env := newTestEnv(t)
	stats := env.newStats()

	stats.AddMinutes(7, models.ActivityMindfulness, 25)

	// A fresh aggregator over the same cache sees the persisted state.
	fresh := env.newStats()
	minutes, total := fresh.Totals(7)
	assert.Equal(t, 25, minutes[models.ActivityMindfulness])
	assert.Equal(t, 25, total)
}

func TestStaleCachedSnapshotFoldsIntoHistory(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()

	// Yesterday's closing state survived a process restart in the cache.
	yesterday := DaysAgo(env.clock, 1)
	require.NoError(t, env.cache.SetJSON(statsKey(1), dailySnapshot{
		Date:    yesterday,
		Minutes: map[models.ActivityKind]int{models.ActivityChant: 30},
	}))

	stats := env.newStatsWith(ledger)
	assert.Zero(t, stats.TotalMinutes(1))
	assert.Equal(t, 30, ledger.Load(1)[yesterday])
}

func TestUndatedCachedSnapshotIsDiscarded(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()

	// A value in the pre-dated format carries no day; it cannot be
	// attributed, so it is dropped rather than adopted.
	require.NoError(t, env.cache.SetJSON(statsKey(1), map[models.ActivityKind]int{
		models.ActivityChant: 30,
	}))

	stats := env.newStatsWith(ledger)
	assert.Zero(t, stats.TotalMinutes(1))
	assert.Empty(t, ledger.Load(1))
}

func TestAddMinutesUpsertsRemoteRecord(t *testing.T) {
	env := newTestEnv(t)
	stats := env.newStats()

	stats.AddMinutes(5, models.ActivityChant, 10)
	stats.AddMinutes(5, models.ActivityChant, 15)
	stats.Flush()

	var rec models.DailyPracticeRecord
	require.NoError(t, env.db.
		Where("user_id = ? AND practice_date = ?", 5, Today(env.clock)).
		First(&rec).Error)
	assert.Equal(t, 25, rec.ChantMinutes)
	assert.Equal(t, 25, rec.TotalMinutes)
}

func TestRolloverRecordsHistoryAndResets(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	stats.AddMinutes(1, models.ActivityChant, 30)
	stats.AddMinutes(1, models.ActivityBow, 40)
	_, total := stats.Totals(1)
	assert.Equal(t, 70, total)

	closing := DaysAgo(env.clock, 1)
	stats.Rollover(1, closing)

	history := ledger.Load(1)
	assert.Equal(t, 70, history[closing])

	minutes, total := stats.Totals(1)
	assert.Equal(t, 0, total)
	for _, kind := range models.AllActivities {
		assert.Equal(t, 0, minutes[kind])
	}
}

func TestRolloverIdempotentOnceZeroed(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	stats.AddMinutes(1, models.ActivityChant, 30)
	closing := DaysAgo(env.clock, 1)

	stats.Rollover(1, closing)
	first := ledger.Load(1)

	// Second call sees total=0 and writes nothing.
	stats.Rollover(1, closing)
	second := ledger.Load(1)

	assert.Equal(t, first, second)
	assert.Len(t, second, 1)
}

func TestRolloverWithZeroTotalWritesNoHistory(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	stats.Rollover(9, DaysAgo(env.clock, 1))
	assert.Empty(t, ledger.Load(9))
}

func TestInvalidateReloadsFromCache(t *testing.T) {
	env := newTestEnv(t)
	stats := env.newStats()

	stats.AddMinutes(3, models.ActivityBreath, 12)
	stats.Invalidate()

	minutes, total := stats.Totals(3)
	assert.Equal(t, 12, minutes[models.ActivityBreath])
	assert.Equal(t, 12, total)
}
