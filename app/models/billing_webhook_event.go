package models

import "time"

// BillingWebhookEvent is the idempotency ledger for payment-processor event
// deliveries. The unique index on event_id is the sole dedup gate: inserting
// a row admits the event for processing, a uniqueness conflict means it has
// been seen before. Rows are never deleted.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	EventID         string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_webhook_events_event_id" json:"event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ReceivedAt      time.Time  `gorm:"autoCreateTime;index" json:"received_at"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProcessedOK reports whether the event completed handling successfully.
func (e *BillingWebhookEvent) ProcessedOK() bool {
	return e != nil && e.ProcessedAt != nil && e.ProcessingError == ""
}

// FailedProcessing reports whether handling finished with a recorded error.
// A row with no outcome at all is neither: its first attempt may still be
// running.
func (e *BillingWebhookEvent) FailedProcessing() bool {
	return e != nil && e.ProcessedAt != nil && e.ProcessingError != ""
}
