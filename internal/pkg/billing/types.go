package billing

import (
	"context"
	"time"
)

// NormalizedSubscription is the processor-agnostic shape used when syncing
// external subscription state into local tables.
type NormalizedSubscription struct {
	UserID                 uint
	ExternalSubscriptionID string
	ExternalCustomerID     string
	PriceRef               string
	BillingInterval        string
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	CanceledAt             *time.Time
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	EventID     string
	EventType   string
	PayloadJSON string
}

// Refusal reasons for tier change requests.
const (
	RefusalCommitmentLock = "commitment_lock"
	RefusalUsageExceeds   = "usage_exceeds_target"
)

// TierChangeResult reports the outcome of a self-service tier change request.
// A refusal carries the reason and, for lock refusals, when the lock lifts.
type TierChangeResult struct {
	Allowed          bool       `json:"allowed"`
	Tier             string     `json:"tier"`
	BillingInterval  string     `json:"billing_interval,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	DaysRemaining    int        `json:"days_remaining,omitempty"`
	LiftsAt          *time.Time `json:"lifts_at,omitempty"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// UsageReader reports how many analyses a user has consumed in the current
// period. The billing service uses it to refuse downgrades that would land
// the user above the target tier's quota; metering owns the counters.
type UsageReader interface {
	UsedInCurrentPeriod(ctx context.Context, userID uint) (int, error)
}

// Mailer sends billing-related notifications. Nil disables mail.
type Mailer interface {
	SendServicePaymentConfirmation(toEmail, serviceType string) error
}
