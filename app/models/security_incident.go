package models

import "time"

const (
	IncidentTypeBruteForce = "brute_force"

	IncidentSeverityHigh = "HIGH"

	IncidentStatusActive   = "ACTIVE"
	IncidentStatusResolved = "RESOLVED"
)

// SecurityIncident materializes a detected attack pattern from the audit log.
// Created by detection, mutated only by explicit resolution.
type SecurityIncident struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Type         string     `gorm:"type:varchar(50);not null;index:idx_incidents_type_ip_status,priority:1" json:"type"`
	Severity     string     `gorm:"type:varchar(20);not null" json:"severity"`
	IPAddress    string     `gorm:"type:varchar(45);not null;index:idx_incidents_type_ip_status,priority:2" json:"ip_address"`
	Status       string     `gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_incidents_type_ip_status,priority:3" json:"status"`
	FailureCount int        `gorm:"default:0" json:"failure_count"`
	Details      string     `gorm:"type:text" json:"details"`
	ResolvedAt   *time.Time `gorm:"type:timestamp;default:null" json:"resolved_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the incident has not been resolved yet.
func (i *SecurityIncident) IsActive() bool {
	return i.Status == IncidentStatusActive
}
