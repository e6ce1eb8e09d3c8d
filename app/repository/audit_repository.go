package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

// auditRepository implements the AuditRepository interface
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository instance
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Create appends an audit event. Events are never updated afterwards.
func (r *auditRepository) Create(event *models.AuditEvent) error {
	return r.db.Create(event).Error
}

// ListByUser pages through a user's own events, newest first
func (r *auditRepository) ListByUser(userID uint, offset, limit int) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error
	return events, err
}

// CountByUser returns the total event count of a user
func (r *auditRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.AuditEvent{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// GetFailedLoginsSince returns all failed-login events after the given time
func (r *auditRepository) GetFailedLoginsSince(since time.Time) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := r.db.
		Where("action = ? AND success = ? AND created_at >= ?", models.AuditActionLoginFailed, false, since).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
