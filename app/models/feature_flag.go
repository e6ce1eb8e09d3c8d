package models

import "time"

// FeatureFlag is a named toggle with an optional percentage rollout.
// Evaluation happens per request against an immutable snapshot; see
// internal/pkg/featureflag.
type FeatureFlag struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Key               string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"key" validate:"required,max=100"`
	Description       string    `gorm:"type:varchar(255);default:''" json:"description" validate:"max=255"`
	Enabled           bool      `gorm:"default:false" json:"enabled"`
	RolloutPercentage int       `gorm:"default:100" json:"rollout_percentage" validate:"min=0,max=100"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
