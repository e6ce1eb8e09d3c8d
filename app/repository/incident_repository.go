package repository

import (
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

// incidentRepository implements the IncidentRepository interface
type incidentRepository struct {
	db *gorm.DB
}

// NewIncidentRepository creates a new incident repository instance
func NewIncidentRepository(db *gorm.DB) IncidentRepository {
	return &incidentRepository{db: db}
}

// Create inserts a new security incident
func (r *incidentRepository) Create(incident *models.SecurityIncident) error {
	return r.db.Create(incident).Error
}

// GetByID retrieves an incident by ID
func (r *incidentRepository) GetByID(id uint) (*models.SecurityIncident, error) {
	var incident models.SecurityIncident
	if err := r.db.First(&incident, id).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}

// GetActiveByTypeAndIP returns the ACTIVE incident for an IP+type pair, if any
func (r *incidentRepository) GetActiveByTypeAndIP(incidentType, ip string) (*models.SecurityIncident, error) {
	var incident models.SecurityIncident
	err := r.db.
		Where("type = ? AND ip_address = ? AND status = ?", incidentType, ip, models.IncidentStatusActive).
		First(&incident).Error
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// List pages through incidents, newest first
func (r *incidentRepository) List(offset, limit int) ([]models.SecurityIncident, error) {
	var incidents []models.SecurityIncident
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&incidents).Error
	return incidents, err
}

// Update persists an incident row
func (r *incidentRepository) Update(incident *models.SecurityIncident) error {
	return r.db.Save(incident).Error
}
