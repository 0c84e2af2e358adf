package services

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"sangha/backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsAggregator holds each user's per-activity minutes for the current
// calendar day. Every mutation is persisted to the local cache before
// returning; remote writes are fire-and-forget with logged failures.
type StatsAggregator struct {
	mu      sync.Mutex
	minutes map[uint]map[models.ActivityKind]int

	db      *gorm.DB
	cache   *Cache
	ledger  *HistoryLedger
	clock   Clock
	logger  *log.Logger
	pending sync.WaitGroup
}

// dailySnapshot is the cached form of a user's live aggregate. The date
// marks which calendar day the minutes belong to, so a snapshot written
// before a day transition is never adopted as the new day's counts.
type dailySnapshot struct {
	Date    string                      `json:"date"`
	Minutes map[models.ActivityKind]int `json:"minutes"`
}

func NewStatsAggregator(db *gorm.DB, cache *Cache, ledger *HistoryLedger, clock Clock, logger *log.Logger) *StatsAggregator {
	return &StatsAggregator{
		minutes: make(map[uint]map[models.ActivityKind]int),
		db:      clockedDB(db, clock),
		cache:   cache,
		ledger:  ledger,
		clock:   clock,
		logger:  logger,
	}
}

func statsKey(userID uint) string {
	return fmt.Sprintf("%s%d", KeyDailyStats, userID)
}

func emptyMinutes() map[models.ActivityKind]int {
	m := make(map[models.ActivityKind]int, len(models.AllActivities))
	for _, kind := range models.AllActivities {
		m[kind] = 0
	}
	return m
}

// AddMinutes increments the stored value for (userID, kind). Non-positive
// minutes and unknown kinds are silently ignored.
func (a *StatsAggregator) AddMinutes(userID uint, kind models.ActivityKind, minutes int) {
	if minutes <= 0 || !kind.Valid() {
		return
	}

	a.mu.Lock()
	a.ensureLoadedLocked(userID)
	a.minutes[userID][kind] += minutes
	snapshot := copyMinutes(a.minutes[userID])
	a.mu.Unlock()

	today := Today(a.clock)
	a.writeSnapshot(userID, today, snapshot)

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		a.upsertRemote(userID, today, snapshot)
	}()
}

// Totals returns a copy of the user's per-activity minutes and their sum.
func (a *StatsAggregator) Totals(userID uint) (map[models.ActivityKind]int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ensureLoadedLocked(userID)
	snapshot := copyMinutes(a.minutes[userID])
	return snapshot, sumMinutes(snapshot)
}

// TotalMinutes returns the user's current-day total.
func (a *StatsAggregator) TotalMinutes(userID uint) int {
	_, total := a.Totals(userID)
	return total
}

// ActiveUsers lists the users with a live aggregate in this instance.
func (a *StatsAggregator) ActiveUsers() []uint {
	a.mu.Lock()
	defer a.mu.Unlock()

	users := make([]uint, 0, len(a.minutes))
	for userID := range a.minutes {
		users = append(users, userID)
	}
	return users
}

// LiveTotals returns every tracked user's current total.
func (a *StatsAggregator) LiveTotals() map[uint]int {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := make(map[uint]int, len(a.minutes))
	for userID, m := range a.minutes {
		totals[userID] = sumMinutes(m)
	}
	return totals
}

// Rollover closes out the user's day: if the total is positive it is merged
// into the history ledger under closingDate, then the live counters reset
// to zero. A second call for the same date is a no-op because the total is
// already zero.
func (a *StatsAggregator) Rollover(userID uint, closingDate string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ensureLoadedLocked(userID)
	total := sumMinutes(a.minutes[userID])
	if total > 0 {
		a.ledger.RecordDay(userID, closingDate, total)
	}

	a.minutes[userID] = emptyMinutes()
	a.writeSnapshot(userID, Today(a.clock), a.minutes[userID])
}

// Flush blocks until every in-flight remote write has finished. Callers
// on the mutation path never wait; this is for shutdown and tests.
func (a *StatsAggregator) Flush() {
	a.pending.Wait()
}

// Invalidate drops every in-memory aggregate so the next read reloads from
// persisted state. Called after a day transition instead of restarting the
// process.
func (a *StatsAggregator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.minutes = make(map[uint]map[models.ActivityKind]int)
}

// ensureLoadedLocked populates the user's aggregate. A cached snapshot is
// adopted only when it belongs to the current day; a snapshot from an
// earlier day is the closing state of a day this instance never got to
// roll over (process restart), so its total is folded into the history
// ledger and the new day starts from zero. Without a usable snapshot,
// today's remote record is the fallback, then zeros.
func (a *StatsAggregator) ensureLoadedLocked(userID uint) {
	if _, ok := a.minutes[userID]; ok {
		return
	}

	today := Today(a.clock)

	var snap dailySnapshot
	if a.cache.GetJSON(statsKey(userID), &snap) && snap.Date == today {
		a.minutes[userID] = normalizeMinutes(snap.Minutes)
		return
	}

	if snap.Date != "" && snap.Date < today {
		if total := sumMinutes(snap.Minutes); total > 0 {
			a.ledger.RecordDay(userID, snap.Date, total)
		}
	}

	snapshot := emptyMinutes()
	var rec models.DailyPracticeRecord
	err := a.db.
		Where("user_id = ? AND practice_date = ?", userID, today).
		First(&rec).Error
	if err == nil {
		snapshot = rec.Minutes()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		a.logger.Printf("stats: remote load failed for user %d: %v", userID, err)
	}

	a.minutes[userID] = snapshot
	a.writeSnapshot(userID, today, snapshot)
}

func (a *StatsAggregator) writeSnapshot(userID uint, date string, minutes map[models.ActivityKind]int) {
	snap := dailySnapshot{Date: date, Minutes: minutes}
	if err := a.cache.SetJSON(statsKey(userID), snap); err != nil {
		a.logger.Printf("stats: cache write failed for user %d: %v", userID, err)
	}
}

// normalizeMinutes backfills missing kinds from a partially decoded value.
func normalizeMinutes(m map[models.ActivityKind]int) map[models.ActivityKind]int {
	out := emptyMinutes()
	for _, kind := range models.AllActivities {
		if v, ok := m[kind]; ok {
			out[kind] = v
		}
	}
	return out
}

func (a *StatsAggregator) upsertRemote(userID uint, date string, minutes map[models.ActivityKind]int) {
	rec := models.DailyPracticeRecord{UserID: userID, PracticeDate: date}
	rec.SetMinutes(minutes)

	err := a.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "practice_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"chant_minutes", "bow_minutes", "mindfulness_minutes", "breath_minutes",
			"total_minutes", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		a.logger.Printf("stats: remote write failed for user %d date %s: %v", userID, date, err)
	}
}

func copyMinutes(m map[models.ActivityKind]int) map[models.ActivityKind]int {
	out := make(map[models.ActivityKind]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sumMinutes(m map[models.ActivityKind]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
