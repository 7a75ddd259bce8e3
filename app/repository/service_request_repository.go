package repository

import (
	"github.com/DorianVeras/TradeGate/app/models"
	"gorm.io/gorm"
)

// serviceRequestRepository implements the ServiceRequestRepository interface
type serviceRequestRepository struct {
	db *gorm.DB
}

// NewServiceRequestRepository creates a new service request repository instance
func NewServiceRequestRepository(db *gorm.DB) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

func (r *serviceRequestRepository) Create(request *models.ServiceRequest) error {
	return r.db.Create(request).Error
}

func (r *serviceRequestRepository) GetByUUID(uuid string) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	if err := r.db.Where("uuid = ?", uuid).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *serviceRequestRepository) GetByUserID(userID uint) ([]models.ServiceRequest, error) {
	var requests []models.ServiceRequest
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&requests).Error
	return requests, err
}

func (r *serviceRequestRepository) Update(request *models.ServiceRequest) error {
	return r.db.Save(request).Error
}

func (r *serviceRequestRepository) ListByStatus(status string, offset, limit int) ([]models.ServiceRequest, error) {
	var requests []models.ServiceRequest
	err := r.db.Where("status = ?", status).Offset(offset).Limit(limit).Order("created_at DESC").Find(&requests).Error
	return requests, err
}

func (r *serviceRequestRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.ServiceRequest{}).Count(&count).Error
	return count, err
}
