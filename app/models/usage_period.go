package models

import "time"

// UsagePeriod tracks the analysis counter for one subscriber within one
// usage window. The period key is a calendar month (YYYY-MM) for Trial
// subscribers or the ISO start date of the rolling 30-day window for paid
// subscribers. Rows are superseded on rollover, never deleted, so historical
// usage stays queryable.
type UsagePeriod struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:ux_usage_periods_user_key,priority:1" json:"user_id"`
	PeriodKey     string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_usage_periods_user_key,priority:2" json:"period_key"`
	AnalysisCount int       `gorm:"not null;default:0" json:"analysis_count"`
	PeriodEnd     time.Time `gorm:"type:timestamp;not null" json:"period_end"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
