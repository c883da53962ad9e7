package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	TouchLastLogin(id uint) error
}

// ProviderAccountRepository defines the interface for OAuth account links
type ProviderAccountRepository interface {
	GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error)
	ListByUserID(userID uint) ([]models.ProviderAccount, error)
	Create(account *models.ProviderAccount) error
	Save(account *models.ProviderAccount) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User            UserRepository
	ProviderAccount ProviderAccountRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		ProviderAccount: NewProviderAccountRepository(db),
	}
}
