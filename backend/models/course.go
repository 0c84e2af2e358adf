package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Title     string `gorm:"not null"`
	ShortDesc string
	Body      string
	AuthorID  uint
	Published bool `gorm:"default:false"`
}

// ActivityQuota is the admin-set daily target for one activity kind,
// replicated to every client through the config endpoint.
type ActivityQuota struct {
	gorm.Model
	Activity     ActivityKind `gorm:"size:16;unique;not null"`
	DailyMinutes int          `gorm:"default:0"`
}
