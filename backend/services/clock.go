package services

import (
	"time"

	"gorm.io/gorm"
)

// Clock abstracts wall-clock time so schedulers and day math can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

// All day math runs in the community's home timezone, not the device zone,
// so every member rolls over at the same instant.
var referenceZone = loadReferenceZone()

func loadReferenceZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// No tzdata on the host; the reference zone has no DST anyway.
		return time.FixedZone("UTC+8", 8*60*60)
	}
	return loc
}

const dayFormat = "2006-01-02"

// Today returns the current calendar date string in the reference timezone.
func Today(clock Clock) string {
	return clock.Now().In(referenceZone).Format(dayFormat)
}

// WeekRange returns the Monday..Sunday range containing the current date,
// formatted "YYYY-MM-DD~YYYY-MM-DD". It is the composite-key component for
// weekly leave/check-in state.
func WeekRange(clock Clock) string {
	now := clock.Now().In(referenceZone)
	sinceMonday := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -sinceMonday)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(dayFormat) + "~" + sunday.Format(dayFormat)
}

// DaysAgo returns the date string for n days before today in the reference
// timezone.
func DaysAgo(clock Clock, n int) string {
	return clock.Now().In(referenceZone).AddDate(0, 0, -n).Format(dayFormat)
}

// clockedDB returns a session whose CreatedAt/UpdatedAt stamps come from the
// injected clock rather than the process wall clock.
func clockedDB(db *gorm.DB, clock Clock) *gorm.DB {
	return db.Session(&gorm.Session{NowFunc: clock.Now})
}
