package models

import "time"

// BillingPlanMapping maps a Stripe price id to an internal plan. Kept as data
// so new prices can be mapped without a deploy.
type BillingPlanMapping struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProviderPriceRef string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_price_ref"`
	InternalPlan     string    `gorm:"type:varchar(50);not null" json:"internal_plan"`
	IsActive         bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
