package models

import "time"

// BillingWebhookEvent is a queue entry for asynchronously processed provider
// billing events. Rows are created on receipt (deduplicated by provider event
// id) and mutated by the processor until Processed is set. RetryCount caps
// reprocessing of failing events.
type BillingWebhookEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProviderEventID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_event_id"`
	EventType       string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	Processed       bool      `gorm:"default:false;index" json:"processed"`
	RetryCount      int       `gorm:"default:0" json:"retry_count"`
	ErrorMessage    string    `gorm:"type:text" json:"error_message"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
