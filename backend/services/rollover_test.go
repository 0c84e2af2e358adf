package services

import (
	"testing"
	"time"

	"sangha/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(env *testEnv, stats *StatsAggregator, ledger *HistoryLedger, resync func()) *RolloverScheduler {
	return NewRolloverScheduler(stats, ledger, env.cache, env.clock, env.logger, 30*time.Second, resync)
}

func TestFirstRunOnlyInitializesMarker(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	stats.AddMinutes(1, models.ActivityChant, 30)

	sched := newTestScheduler(env, stats, ledger, nil)
	sched.checkOnce(true)

	marker, ok := env.cache.Get(KeyLastActiveDate)
	assert.True(t, ok)
	assert.Equal(t, Today(env.clock), marker)

	// No rollover ran: the aggregate is untouched and history is empty.
	assert.Equal(t, 30, stats.TotalMinutes(1))
	assert.Empty(t, ledger.Load(1))
}

func TestSameDayCheckIsANoOp(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	resyncs := 0
	sched := newTestScheduler(env, stats, ledger, func() { resyncs++ })

	sched.checkOnce(true)
	stats.AddMinutes(1, models.ActivityBow, 20)
	sched.checkOnce(true)

	assert.Equal(t, 20, stats.TotalMinutes(1))
	assert.Zero(t, resyncs)
}

func TestPeriodicTransitionRollsOverAndResyncs(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	resyncs := 0
	sched := newTestScheduler(env, stats, ledger, func() {
		stats.Invalidate()
		resyncs++
	})

	sched.checkOnce(true)
	closing := Today(env.clock)
	stats.AddMinutes(1, models.ActivityChant, 30)
	stats.AddMinutes(1, models.ActivityBow, 40)

	env.clock.Advance(24 * time.Hour)
	sched.checkOnce(true)

	today := Today(env.clock)
	marker, _ := env.cache.Get(KeyLastActiveDate)
	assert.Equal(t, today, marker)

	assert.Equal(t, 70, ledger.Load(1)[closing])
	assert.Zero(t, stats.TotalMinutes(1))
	assert.Equal(t, 1, resyncs)
}

func TestStartupTransitionSkipsResync(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	resyncs := 0
	sched := newTestScheduler(env, stats, ledger, func() { resyncs++ })

	closing := Today(env.clock)
	require.NoError(t, env.cache.Set(KeyLastActiveDate, closing))
	stats.AddMinutes(2, models.ActivityMindfulness, 15)

	env.clock.Advance(24 * time.Hour)
	sched.CheckAtStartup()

	marker, _ := env.cache.Get(KeyLastActiveDate)
	assert.Equal(t, Today(env.clock), marker)
	assert.Equal(t, 15, ledger.Load(2)[closing])
	assert.Zero(t, stats.TotalMinutes(2))
	assert.Zero(t, resyncs)
}

func TestRestartAcrossDayTransitionClosesOutOldDay(t *testing.T) {
	env := newTestEnv(t)

	// Day one: minutes accumulate, then the process dies without rolling
	// over. Only the cache and marker survive.
	closing := Today(env.clock)
	{
		ledger := env.newLedger()
		stats := env.newStatsWith(ledger)
		sched := newTestScheduler(env, stats, ledger, nil)
		sched.CheckAtStartup()
		stats.AddMinutes(1, models.ActivityChant, 30)
	}

	env.clock.Advance(24 * time.Hour)

	// Day two: a fresh instance over the same cache and store. Yesterday's
	// snapshot must land in history, never in today's live counters.
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)
	sched := newTestScheduler(env, stats, ledger, nil)
	sched.CheckAtStartup()

	marker, _ := env.cache.Get(KeyLastActiveDate)
	assert.Equal(t, Today(env.clock), marker)
	assert.Zero(t, stats.TotalMinutes(1))
	assert.Equal(t, 30, ledger.Load(1)[closing])
}

func TestTransitionRollsOverEveryLiveUser(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	sched := newTestScheduler(env, stats, ledger, nil)
	sched.checkOnce(true)

	closing := Today(env.clock)
	stats.AddMinutes(1, models.ActivityChant, 10)
	stats.AddMinutes(2, models.ActivityBow, 20)

	env.clock.Advance(24 * time.Hour)
	sched.checkOnce(true)

	assert.Equal(t, 10, ledger.Load(1)[closing])
	assert.Equal(t, 20, ledger.Load(2)[closing])
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.newLedger()
	stats := env.newStatsWith(ledger)

	sched := NewRolloverScheduler(stats, ledger, env.cache, env.clock, env.logger, time.Millisecond, nil)
	sched.Start()
	time.Sleep(10 * time.Millisecond)
	sched.Stop()
	sched.Stop()
}
