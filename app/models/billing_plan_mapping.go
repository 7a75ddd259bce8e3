package models

import "time"

// BillingPlanMapping maps processor price references (price/plan IDs carried
// in event line items) to internal subscription tiers.
type BillingPlanMapping struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PriceRef        string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_plan_mappings_ref,priority:1" json:"price_ref"`
	BillingInterval string    `gorm:"type:varchar(16);not null;default:'monthly';uniqueIndex:ux_billing_plan_mappings_ref,priority:2" json:"billing_interval"`
	Tier            string    `gorm:"type:varchar(50);not null;default:'Trial';index" json:"tier"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
