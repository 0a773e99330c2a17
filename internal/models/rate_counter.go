package models

import "time"

// RateCounter is a fixed-window request counter shared by every API instance.
type RateCounter struct {
	Key       string    `gorm:"column:counter_key;primaryKey;type:varchar(191)"`
	Count     int64     `gorm:"not null;default:0"`
	WindowEnd time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// TableName pins the logical table name.
func (RateCounter) TableName() string { return "rate_limit_counters" }
