package models

import "time"

const (
	BillingIntervalMonthly = "monthly"
	BillingIntervalAnnual  = "annual"
)

const (
	BillingStatusActive   = "active"
	BillingStatusCanceled = "canceled"
	BillingStatusPastDue  = "past_due"
)

// BillingSubscription is the internal subscription record mirroring external
// processor state. The unique index on user_id enforces one record per
// subscriber at the store level rather than by caller convention; all writes
// go through the billing reconciler.
type BillingSubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;uniqueIndex:ux_billing_subscriptions_user" json:"user_id"`
	ExternalSubscriptionID string     `gorm:"type:varchar(191);not null;default:'';index" json:"external_subscription_id"`
	ExternalCustomerID     string     `gorm:"type:varchar(191);not null;default:'';index" json:"external_customer_id"`
	Tier                   string     `gorm:"type:varchar(50);not null;default:'Trial';index" json:"tier"`
	BillingInterval        string     `gorm:"type:varchar(16);not null;default:'monthly'" json:"billing_interval"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	LockedUntil            *time.Time `gorm:"type:timestamp;default:null" json:"locked_until,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLocked reports whether a commitment lock is active at the given instant.
func (s *BillingSubscription) IsLocked(now time.Time) bool {
	return s != nil && s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// HasExplicitPeriod reports whether the record carries processor-seeded
// period bounds (paid subscribers). Trial records run on calendar months.
func (s *BillingSubscription) HasExplicitPeriod() bool {
	return s != nil && s.CurrentPeriodStart != nil && s.CurrentPeriodEnd != nil
}
