package repository

import (
	"github.com/DorianVeras/TradeGate/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// ServiceRequestRepository defines the interface for professional-service
// purchase requests
type ServiceRequestRepository interface {
	Create(request *models.ServiceRequest) error
	GetByUUID(uuid string) (*models.ServiceRequest, error)
	GetByUserID(userID uint) ([]models.ServiceRequest, error)
	Update(request *models.ServiceRequest) error
	ListByStatus(status string, offset, limit int) ([]models.ServiceRequest, error)
	Count() (int64, error)
}

// Repositories bundles all repository instances
type Repositories struct {
	User           UserRepository
	ServiceRequest ServiceRequestRepository
}

// NewRepositories creates all repository instances from one DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		ServiceRequest: NewServiceRequestRepository(db),
	}
}
