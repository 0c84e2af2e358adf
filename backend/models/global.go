package models

import "gorm.io/gorm"

// GlobalConfig is an admin-controlled key/content record replicated to all
// clients. Content is a raw JSON document.
type GlobalConfig struct {
	gorm.Model
	Key     string `gorm:"unique;not null"`
	Content string
}
