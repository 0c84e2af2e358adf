package services

import (
	"log"

	"sangha/backend/models"

	"gorm.io/gorm"
)

// RankingCalculator derives a user's percentile from today's totals across
// all users. Nothing is persisted; the value is recomputed on every call.
type RankingCalculator struct {
	db     *gorm.DB
	stats  *StatsAggregator
	clock  Clock
	logger *log.Logger
}

func NewRankingCalculator(db *gorm.DB, stats *StatsAggregator, clock Clock, logger *log.Logger) *RankingCalculator {
	return &RankingCalculator{db: db, stats: stats, clock: clock, logger: logger}
}

// RankPercentile computes the caller's standing among all users with a
// recorded total today, caller included.
func (r *RankingCalculator) RankPercentile(userID uint) int {
	totals := r.todayTotals()
	if _, ok := totals[userID]; !ok {
		totals[userID] = r.stats.TotalMinutes(userID)
	}
	return ComputeRankPercentile(userID, totals)
}

// todayTotals merges today's remote records with this instance's live
// aggregates. Live values win: they are at least as fresh as the last
// best-effort remote write.
func (r *RankingCalculator) todayTotals() map[uint]int {
	totals := map[uint]int{}

	var records []models.DailyPracticeRecord
	err := r.db.Where("practice_date = ?", Today(r.clock)).Find(&records).Error
	if err != nil {
		r.logger.Printf("ranking: remote load failed: %v", err)
	} else {
		for _, rec := range records {
			totals[rec.UserID] = rec.TotalMinutes
		}
	}

	for userID, total := range r.stats.LiveTotals() {
		totals[userID] = total
	}
	return totals
}

// ComputeRankPercentile returns floor(100 * strictlyLower / n) where n is
// the number of users in totals. Ties are not counted as lower, so a user
// tied with the maximum is not penalized. A population of one (or none)
// ranks 100.
func ComputeRankPercentile(userID uint, totals map[uint]int) int {
	n := len(totals)
	if n <= 1 {
		return 100
	}

	mine := totals[userID]
	lower := 0
	for id, total := range totals {
		if id == userID {
			continue
		}
		if total < mine {
			lower++
		}
	}
	return 100 * lower / n
}
