package repository

import (
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

// flagRepository implements the FlagRepository interface
type flagRepository struct {
	db *gorm.DB
}

// NewFlagRepository creates a new feature flag repository instance
func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &flagRepository{db: db}
}

// Create inserts a new feature flag
func (r *flagRepository) Create(flag *models.FeatureFlag) error {
	return r.db.Create(flag).Error
}

// GetByKey retrieves a flag by its key
func (r *flagRepository) GetByKey(key string) (*models.FeatureFlag, error) {
	var flag models.FeatureFlag
	if err := r.db.Where("`key` = ?", key).First(&flag).Error; err != nil {
		return nil, err
	}
	return &flag, nil
}

// GetAll returns every flag
func (r *flagRepository) GetAll() ([]models.FeatureFlag, error) {
	var flags []models.FeatureFlag
	err := r.db.Order("`key` ASC").Find(&flags).Error
	return flags, err
}

// Update persists a flag row
func (r *flagRepository) Update(flag *models.FeatureFlag) error {
	return r.db.Save(flag).Error
}

// Delete removes a flag
func (r *flagRepository) Delete(id uint) error {
	return r.db.Delete(&models.FeatureFlag{}, id).Error
}
