package models

import "time"

const (
	AuditActionLoginSuccess = "login_success"
	AuditActionLoginFailed  = "login_failed"
)

// AuditEvent is an append-only security audit log entry. Rows are never
// updated after creation; incident detection scans them read-only.
type AuditEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	Action       string    `gorm:"type:varchar(100);not null;index" json:"action" validate:"required,max=100"`
	ResourceType string    `gorm:"type:varchar(100);default:''" json:"resource_type" validate:"max=100"`
	ResourceID   string    `gorm:"type:varchar(191);default:''" json:"resource_id" validate:"max=191"`
	Success      bool      `gorm:"default:true" json:"success"`
	IPAddress    string    `gorm:"type:varchar(45);default:'';index" json:"ip_address"`
	Details      string    `gorm:"type:text" json:"details" validate:"max=4096"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
