package services

import (
	"fmt"
	"log"
	"sync"

	"sangha/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryLedger keeps, per user, the trailing 7 days of closed-out daily
// totals. The local cache holds the working copy; remote rows are the
// shared durable copy and are purged on the same window.
type HistoryLedger struct {
	mu      sync.Mutex
	db      *gorm.DB
	cache   *Cache
	clock   Clock
	logger  *log.Logger
	pending sync.WaitGroup
}

func NewHistoryLedger(db *gorm.DB, cache *Cache, clock Clock, logger *log.Logger) *HistoryLedger {
	return &HistoryLedger{db: clockedDB(db, clock), cache: cache, clock: clock, logger: logger}
}

func historyKey(userID uint) string {
	return fmt.Sprintf("%s%d", KeyHistory, userID)
}

// RecordDay inserts or overwrites the total for date, then prunes entries
// outside the 7-day window. The remote total is updated best-effort.
func (l *HistoryLedger) RecordDay(userID uint, date string, totalMinutes int) {
	l.mu.Lock()
	entries := map[string]int{}
	l.cache.GetJSON(historyKey(userID), &entries)
	entries[date] = totalMinutes
	l.pruneLocked(entries)
	if err := l.cache.SetJSON(historyKey(userID), entries); err != nil {
		l.logger.Printf("history: cache write failed for user %d: %v", userID, err)
	}
	l.mu.Unlock()

	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		rec := models.DailyPracticeRecord{
			UserID:       userID,
			PracticeDate: date,
			TotalMinutes: totalMinutes,
		}
		err := l.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "practice_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_minutes", "updated_at"}),
		}).Create(&rec).Error
		if err != nil {
			l.logger.Printf("history: remote write failed for user %d date %s: %v", userID, date, err)
		}
	}()
}

// Flush blocks until every in-flight remote write has finished. Callers
// on the mutation path never wait; this is for shutdown and tests.
func (l *HistoryLedger) Flush() {
	l.pending.Wait()
}

// Load returns the pruned history for userID. Pruning is re-applied on
// every load so stale entries written before a clock change self-heal.
// When the cache has no snapshot the remote store is consulted once.
func (l *HistoryLedger) Load(userID uint) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := map[string]int{}
	if !l.cache.GetJSON(historyKey(userID), &entries) {
		entries = l.loadRemoteLocked(userID)
	}
	if l.pruneLocked(entries) {
		if err := l.cache.SetJSON(historyKey(userID), entries); err != nil {
			l.logger.Printf("history: cache write failed for user %d: %v", userID, err)
		}
	}

	out := make(map[string]int, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return out
}

func (l *HistoryLedger) loadRemoteLocked(userID uint) map[string]int {
	entries := map[string]int{}
	today := Today(l.clock)
	cutoff := DaysAgo(l.clock, 7)

	var records []models.DailyPracticeRecord
	err := l.db.
		Where("user_id = ? AND practice_date >= ? AND practice_date < ?", userID, cutoff, today).
		Order("practice_date").
		Find(&records).Error
	if err != nil {
		l.logger.Printf("history: remote load failed for user %d: %v", userID, err)
		return entries
	}

	for _, rec := range records {
		entries[rec.PracticeDate] = rec.TotalMinutes
	}
	if err := l.cache.SetJSON(historyKey(userID), entries); err != nil {
		l.logger.Printf("history: cache write failed for user %d: %v", userID, err)
	}
	return entries
}

// pruneLocked drops entries older than 7 days. An entry exactly 7 days old
// is retained. Calendar-date string comparison, not instant comparison.
func (l *HistoryLedger) pruneLocked(entries map[string]int) bool {
	cutoff := DaysAgo(l.clock, 7)
	changed := false
	for date := range entries {
		if date < cutoff {
			delete(entries, date)
			changed = true
		}
	}
	return changed
}

// PurgeRemote bulk-deletes remote daily records that fell out of the
// 7-day window. Driven once per day transition by the scheduler.
func (l *HistoryLedger) PurgeRemote() {
	cutoff := DaysAgo(l.clock, 7)
	res := l.db.Unscoped().
		Where("practice_date < ?", cutoff).
		Delete(&models.DailyPracticeRecord{})
	if res.Error != nil {
		l.logger.Printf("history: remote purge failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		l.logger.Printf("history: purged %d records older than %s", res.RowsAffected, cutoff)
	}
}
