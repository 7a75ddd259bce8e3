package billing

import (
	"time"

	"github.com/DorianVeras/TradeGate/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	GetSubscriptionByUser(userID uint) (*models.BillingSubscription, error)
	GetSubscriptionByExternalID(externalSubscriptionID string) (*models.BillingSubscription, error)
	UpsertSubscriptionByUser(sub *models.BillingSubscription) error
	FindActivePlanMapping(priceRef, interval string) (*models.BillingPlanMapping, error)
	SetUserTier(userID uint, tier string) error
	AppendInvoice(inv *models.BillingInvoice) (bool, error)
	MarkServiceRequestPaid(uuid string, paidAt time.Time) (*models.ServiceRequest, error)
	GetUserEmail(userID uint) (string, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("event_id = ?", event.EventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetSubscriptionByUser(userID uint) (*models.BillingSubscription, error) {
	var sub models.BillingSubscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriptionByExternalID(externalSubscriptionID string) (*models.BillingSubscription, error) {
	var sub models.BillingSubscription
	if err := r.db.Where("external_subscription_id = ?", externalSubscriptionID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) UpsertSubscriptionByUser(sub *models.BillingSubscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_subscription_id",
			"external_customer_id",
			"tier",
			"billing_interval",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"locked_until",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ?", sub.UserID).First(sub).Error
}

func (r *gormRepository) FindActivePlanMapping(priceRef, interval string) (*models.BillingPlanMapping, error) {
	var m models.BillingPlanMapping
	err := r.db.
		Where("price_ref = ? AND billing_interval = ? AND is_active = ?", priceRef, interval, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) SetUserTier(userID uint, tier string) error {
	us, err := models.GetOrCreateUserSettings(r.db, userID)
	if err != nil {
		return err
	}
	if us.SubscriptionTier == tier {
		return nil
	}
	us.SubscriptionTier = tier
	return r.db.Save(us).Error
}

func (r *gormRepository) AppendInvoice(inv *models.BillingInvoice) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_invoice_id"}},
		DoNothing: true,
	}).Create(inv)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) MarkServiceRequestPaid(uuid string, paidAt time.Time) (*models.ServiceRequest, error) {
	var sr models.ServiceRequest
	if err := r.db.Where("uuid = ?", uuid).First(&sr).Error; err != nil {
		return nil, err
	}
	if sr.Status == models.ServiceRequestStatusPaid {
		return &sr, nil
	}
	sr.Status = models.ServiceRequestStatusPaid
	sr.PaidAt = &paidAt
	if err := r.db.Save(&sr).Error; err != nil {
		return nil, err
	}
	return &sr, nil
}

func (r *gormRepository) GetUserEmail(userID uint) (string, error) {
	var user models.User
	if err := r.db.Select("email").Where("id = ?", userID).First(&user).Error; err != nil {
		return "", err
	}
	return user.Email, nil
}
