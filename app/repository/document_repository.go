package repository

import (
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

// documentRepository implements the DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new knowledge document repository instance
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create inserts a new knowledge document
func (r *documentRepository) Create(doc *models.KnowledgeDocument) error {
	return r.db.Create(doc).Error
}

// GetByUUID retrieves a document by its public UUID
func (r *documentRepository) GetByUUID(uuid string) (*models.KnowledgeDocument, error) {
	var doc models.KnowledgeDocument
	if err := r.db.Where("uuid = ?", uuid).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByUserID returns all documents of a user in insertion order. The full
// set is loaded for every search; there is no index structure.
func (r *documentRepository) GetByUserID(userID uint) ([]models.KnowledgeDocument, error) {
	var docs []models.KnowledgeDocument
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&docs).Error
	return docs, err
}

// GetBySource finds a document by its originating provider file
func (r *documentRepository) GetBySource(userID uint, provider, fileID string) (*models.KnowledgeDocument, error) {
	var doc models.KnowledgeDocument
	err := r.db.
		Where("user_id = ? AND source_provider = ? AND source_file_id = ?", userID, provider, fileID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update persists a document row
func (r *documentRepository) Update(doc *models.KnowledgeDocument) error {
	return r.db.Save(doc).Error
}

// Delete removes a document
func (r *documentRepository) Delete(id uint) error {
	return r.db.Delete(&models.KnowledgeDocument{}, id).Error
}

// CountByUserID returns the document count of a user
func (r *documentRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.KnowledgeDocument{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// IncrementQueryCount bumps the query counter for the given document ids
func (r *documentRepository) IncrementQueryCount(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.KnowledgeDocument{}).
		Where("id IN ?", ids).
		UpdateColumn("query_count", gorm.Expr("query_count + 1")).Error
}
