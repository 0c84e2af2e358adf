package models

import "gorm.io/gorm"

// ActivityKind is one of the fixed practice categories tracked per day.
type ActivityKind string

const (
	ActivityChant       ActivityKind = "chant"
	ActivityBow         ActivityKind = "bow"
	ActivityMindfulness ActivityKind = "mindfulness"
	ActivityBreath      ActivityKind = "breath"
)

var AllActivities = []ActivityKind{
	ActivityChant,
	ActivityBow,
	ActivityMindfulness,
	ActivityBreath,
}

func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityChant, ActivityBow, ActivityMindfulness, ActivityBreath:
		return true
	}
	return false
}

// DailyPracticeRecord is the remote row for one user's minutes on one
// calendar date (date string in the reference timezone).
type DailyPracticeRecord struct {
	gorm.Model
	UserID             uint   `gorm:"uniqueIndex:idx_daily_user_date;not null"`
	PracticeDate       string `gorm:"size:10;uniqueIndex:idx_daily_user_date;not null"`
	ChantMinutes       int    `gorm:"default:0"`
	BowMinutes         int    `gorm:"default:0"`
	MindfulnessMinutes int    `gorm:"default:0"`
	BreathMinutes      int    `gorm:"default:0"`
	TotalMinutes       int    `gorm:"default:0"`
}

func (r *DailyPracticeRecord) SetMinutes(minutes map[ActivityKind]int) {
	r.ChantMinutes = minutes[ActivityChant]
	r.BowMinutes = minutes[ActivityBow]
	r.MindfulnessMinutes = minutes[ActivityMindfulness]
	r.BreathMinutes = minutes[ActivityBreath]
	r.TotalMinutes = r.ChantMinutes + r.BowMinutes + r.MindfulnessMinutes + r.BreathMinutes
}

func (r *DailyPracticeRecord) Minutes() map[ActivityKind]int {
	return map[ActivityKind]int{
		ActivityChant:       r.ChantMinutes,
		ActivityBow:         r.BowMinutes,
		ActivityMindfulness: r.MindfulnessMinutes,
		ActivityBreath:      r.BreathMinutes,
	}
}
