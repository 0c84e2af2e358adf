package models

import "gorm.io/gorm"

type CheckInStatus string

const (
	CheckInNone    CheckInStatus = "none"
	CheckInOnline  CheckInStatus = "online"
	CheckInOffline CheckInStatus = "offline"
)

func (s CheckInStatus) Valid() bool {
	return s == CheckInOnline || s == CheckInOffline
}

// WeeklyState is the per-(user, week-range) leave/check-in row. Rows are
// never deleted; they double as the audit trail for past weeks.
type WeeklyState struct {
	gorm.Model
	UserID          uint `gorm:"uniqueIndex:idx_weekly_user_range;not null"`
	UserName        string
	WeekRange       string        `gorm:"size:21;uniqueIndex:idx_weekly_user_range;not null"`
	LeaveReason     string        // empty = not on leave
	CheckInStatus   CheckInStatus `gorm:"size:16;default:none"`
	HasRevokedLeave bool          `gorm:"default:false"`
}

func (s *WeeklyState) OnLeave() bool {
	return s.LeaveReason != ""
}
