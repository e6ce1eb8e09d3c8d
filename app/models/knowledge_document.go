package models

import "time"

// KnowledgeDocument is a document ingested into a user's knowledge base.
// The embedding vector is computed once at insertion time and stored as a
// JSON array; re-adding a document re-embeds it.
type KnowledgeDocument struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UUID           string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Title          string    `gorm:"type:varchar(255);not null" json:"title" validate:"required,max=255"`
	Content        string    `gorm:"type:longtext;not null" json:"content" validate:"required"`
	SourceProvider string    `gorm:"type:varchar(30);default:''" json:"source_provider"`
	SourceFileID   string    `gorm:"type:varchar(191);default:''" json:"source_file_id"`
	ObjectKey      string    `gorm:"type:varchar(255);default:''" json:"-"`
	EmbeddingJSON  string    `gorm:"type:longtext;not null" json:"-"`
	QueryCount     int64     `gorm:"default:0" json:"query_count"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
