package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/queryhub/QueryHub/app/models"
)

// connectionRepository implements the ConnectionRepository interface
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new cloud connection repository instance
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Upsert creates or refreshes a connection keyed by provider + provider user id
func (r *connectionRepository) Upsert(conn *models.CloudConnection) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"email",
			"access_token",
			"refresh_token",
			"expires_at",
			"updated_at",
		}),
	}).Create(conn).Error; err != nil {
		return err
	}

	return r.db.Where("provider = ? AND provider_user_id = ?", conn.Provider, conn.ProviderUserID).
		First(conn).Error
}

// GetByID retrieves a connection by ID
func (r *connectionRepository) GetByID(id uint) (*models.CloudConnection, error) {
	var conn models.CloudConnection
	if err := r.db.First(&conn, id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetByUserAndProvider returns a user's connection for one provider
func (r *connectionRepository) GetByUserAndProvider(userID uint, provider string) (*models.CloudConnection, error) {
	var conn models.CloudConnection
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetByUserID returns all connections of a user
func (r *connectionRepository) GetByUserID(userID uint) ([]models.CloudConnection, error) {
	var conns []models.CloudConnection
	err := r.db.Where("user_id = ?", userID).Find(&conns).Error
	return conns, err
}

// Delete removes a connection
func (r *connectionRepository) Delete(id uint) error {
	return r.db.Delete(&models.CloudConnection{}, id).Error
}
