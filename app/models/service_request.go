package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ServiceRequestStatusPending   = "pending"
	ServiceRequestStatusPaid      = "paid"
	ServiceRequestStatusCompleted = "completed"
)

// ServiceRequest is a one-time professional-service purchase (supplier
// sourcing, market-entry report, certificate review). Created when the user
// submits the intake form; marked paid by the checkout-completed webhook.
type ServiceRequest struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	ServiceType string         `gorm:"type:varchar(100);not null" json:"service_type"`
	Description string         `gorm:"type:text" json:"description"`
	PriceCents  int64          `gorm:"not null;default:0" json:"price_cents"`
	Status      string         `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	PaidAt      *time.Time     `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID so the request can be referenced from checkout
// metadata before it has a database ID.
func (sr *ServiceRequest) BeforeCreate(tx *gorm.DB) error {
	if sr.UUID == "" {
		sr.UUID = uuid.New().String()
	}
	return nil
}
