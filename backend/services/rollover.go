package services

import (
	"log"
	"sync"
	"time"
)

// RolloverScheduler detects calendar-date transitions in the reference
// timezone and closes out the previous day. Two triggers converge on the
// same check: a periodic tick while the service runs, and a one-shot check
// at startup.
type RolloverScheduler struct {
	stats  *StatsAggregator
	ledger *HistoryLedger
	cache  *Cache
	clock  Clock
	logger *log.Logger

	interval time.Duration
	// resync invalidates derived in-memory state after a periodic
	// transition. The startup path skips it: nothing is loaded yet.
	resync func()

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRolloverScheduler(stats *StatsAggregator, ledger *HistoryLedger, cache *Cache, clock Clock, logger *log.Logger, interval time.Duration, resync func()) *RolloverScheduler {
	return &RolloverScheduler{
		stats:    stats,
		ledger:   ledger,
		cache:    cache,
		clock:    clock,
		logger:   logger,
		interval: interval,
		resync:   resync,
		stop:     make(chan struct{}),
	}
}

// CheckAtStartup runs the transition check once without triggering resync.
func (s *RolloverScheduler) CheckAtStartup() {
	s.checkOnce(false)
}

// Start launches the periodic check. Stop halts it; Stop is idempotent.
func (s *RolloverScheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.checkOnce(true)
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *RolloverScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// checkOnce compares today against the persisted marker. On the first ever
// run it only initializes the marker. On a transition it rolls over every
// live aggregate, purges expired remote records, and advances the marker.
// The marker advances even when a rollover step failed, so a poisoned day
// can never loop.
func (s *RolloverScheduler) checkOnce(periodic bool) {
	today := Today(s.clock)

	last, ok := s.cache.Get(KeyLastActiveDate)
	if !ok || last == "" {
		if err := s.cache.Set(KeyLastActiveDate, today); err != nil {
			s.logger.Printf("rollover: marker init failed: %v", err)
		}
		return
	}
	if last == today {
		return
	}

	s.logger.Printf("rollover: day transition %s -> %s", last, today)
	for _, userID := range s.stats.ActiveUsers() {
		s.stats.Rollover(userID, last)
	}
	s.ledger.PurgeRemote()

	if err := s.cache.Set(KeyLastActiveDate, today); err != nil {
		s.logger.Printf("rollover: marker advance failed: %v", err)
	}

	if periodic && s.resync != nil {
		s.resync()
	}
}
