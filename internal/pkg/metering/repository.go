package metering

import (
	"time"

	"github.com/DorianVeras/TradeGate/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the metering service.
type Repository interface {
	GetUserTier(userID uint) (string, error)
	GetSubscriptionByUser(userID uint) (*models.BillingSubscription, error)
	UpdateSubscriptionPeriod(subscriptionID uint, start, end time.Time) error
	GetUsageCount(userID uint, periodKey string) (int, error)
	IncrementUsage(userID uint, periodKey string, periodEnd time.Time) (int, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a metering repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserTier(userID uint) (string, error) {
	us, err := models.GetOrCreateUserSettings(r.db, userID)
	if err != nil {
		return "", err
	}
	return us.SubscriptionTier, nil
}

func (r *gormRepository) GetSubscriptionByUser(userID uint) (*models.BillingSubscription, error) {
	var sub models.BillingSubscription
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) UpdateSubscriptionPeriod(subscriptionID uint, start, end time.Time) error {
	return r.db.Model(&models.BillingSubscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"current_period_start": start,
			"current_period_end":   end,
		}).Error
}

func (r *gormRepository) GetUsageCount(userID uint, periodKey string) (int, error) {
	var period models.UsagePeriod
	err := r.db.Where("user_id = ? AND period_key = ?", userID, periodKey).First(&period).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return period.AnalysisCount, nil
}

// IncrementUsage bumps the counter for the given window atomically in the
// database. The insert-then-update pair keeps concurrent increments from
// losing writes: the unique (user_id, period_key) index collapses racing
// inserts and the SQL expression update never reads a stale count.
func (r *gormRepository) IncrementUsage(userID uint, periodKey string, periodEnd time.Time) (int, error) {
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "period_key"}},
		DoNothing: true,
	}).Create(&models.UsagePeriod{
		UserID:    userID,
		PeriodKey: periodKey,
		PeriodEnd: periodEnd,
	}).Error; err != nil {
		return 0, err
	}

	if err := r.db.Model(&models.UsagePeriod{}).
		Where("user_id = ? AND period_key = ?", userID, periodKey).
		Update("analysis_count", gorm.Expr("analysis_count + 1")).Error; err != nil {
		return 0, err
	}
	return r.GetUsageCount(userID, periodKey)
}
