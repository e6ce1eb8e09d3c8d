package repository

import (
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

// jobRepository implements the JobRepository interface
type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new generation job repository instance
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// Create inserts a new generation job
func (r *jobRepository) Create(job *models.GenerationJob) error {
	return r.db.Create(job).Error
}

// GetByUUID retrieves a job by its public UUID
func (r *jobRepository) GetByUUID(uuid string) (*models.GenerationJob, error) {
	var job models.GenerationJob
	if err := r.db.Where("uuid = ?", uuid).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetByUserID pages through a user's jobs, newest first
func (r *jobRepository) GetByUserID(userID uint, offset, limit int) ([]models.GenerationJob, error) {
	var jobs []models.GenerationJob
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Update persists a job row. The background worker is the only writer, so
// last write wins by design.
func (r *jobRepository) Update(job *models.GenerationJob) error {
	return r.db.Save(job).Error
}
