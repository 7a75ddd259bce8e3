package models

import "time"

const (
	InvoiceStatusPaid   = "paid"
	InvoiceStatusFailed = "failed"
)

// BillingInvoice is an append-only ledger of invoice outcomes reported by the
// payment processor. A payment failure is recorded here but does not change
// subscription status on its own; the processor emits a separate
// subscription-status event when dunning exhausts retries.
type BillingInvoice struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	ExternalInvoiceID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_invoices_external" json:"external_invoice_id"`
	ExternalSubID     string    `gorm:"type:varchar(191);not null;default:'';index" json:"external_subscription_id"`
	AmountCents       int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency          string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Status            string    `gorm:"type:varchar(16);not null;index" json:"status"`
	FailureMessage    string    `gorm:"type:text" json:"failure_message"`
	OccurredAt        time.Time `gorm:"type:timestamp;not null" json:"occurred_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}
