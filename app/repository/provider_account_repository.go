package repository

import (
	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
)

type providerAccountRepository struct {
	db *gorm.DB
}

// NewProviderAccountRepository creates a new provider account repository instance
func NewProviderAccountRepository(db *gorm.DB) ProviderAccountRepository {
	return &providerAccountRepository{db: db}
}

// GetByProviderUserID finds the link for an external identity
func (r *providerAccountRepository) GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error) {
	var pa models.ProviderAccount
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&pa).Error
	if err != nil {
		return nil, err
	}
	return &pa, nil
}

// ListByUserID returns all provider links of a user
func (r *providerAccountRepository) ListByUserID(userID uint) ([]models.ProviderAccount, error) {
	var accounts []models.ProviderAccount
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&accounts).Error
	return accounts, err
}

func (r *providerAccountRepository) Create(account *models.ProviderAccount) error {
	return r.db.Create(account).Error
}

func (r *providerAccountRepository) Save(account *models.ProviderAccount) error {
	return r.db.Save(account).Error
}
