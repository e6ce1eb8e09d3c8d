package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/queryhub/QueryHub/app/models"
)

// billingRepository implements the BillingRepository interface
type billingRepository struct {
	db *gorm.DB
}

// NewBillingRepository creates a new billing repository instance
func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{db: db}
}

// FindActivePlanMapping resolves a Stripe price reference to an internal plan
func (r *billingRepository) FindActivePlanMapping(providerPriceRef string) (*models.BillingPlanMapping, error) {
	var m models.BillingPlanMapping
	err := r.db.
		Where("provider_price_ref = ? AND is_active = ?", providerPriceRef, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertSubscription creates or overwrites a subscription row keyed by the
// provider subscription id. Conflicts resolve by overwrite (last write wins).
func (r *billingRepository) UpsertSubscription(sub *models.BillingSubscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"provider_customer_id",
			"provider_price_ref",
			"internal_plan",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("provider_subscription_id = ?", sub.ProviderSubscriptionID).
		First(sub).Error
}

// GetSubscriptionByProviderID fetches a subscription by the provider's id
func (r *billingRepository) GetSubscriptionByProviderID(providerSubscriptionID string) (*models.BillingSubscription, error) {
	var sub models.BillingSubscription
	err := r.db.Where("provider_subscription_id = ?", providerSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubscriptionsByUser returns all subscription rows of a user
func (r *billingRepository) ListSubscriptionsByUser(userID uint) ([]models.BillingSubscription, error) {
	var subs []models.BillingSubscription
	err := r.db.Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}

// FindUserByCustomerID resolves a Stripe customer id to a local user id
func (r *billingRepository) FindUserByCustomerID(providerCustomerID string) (uint, error) {
	var settings models.UserSettings
	err := r.db.Where("stripe_customer_id = ?", providerCustomerID).First(&settings).Error
	if err != nil {
		return 0, err
	}
	return settings.UserID, nil
}

// CreateWebhookEventIfNotExists inserts a webhook queue row unless one with
// the same provider event id already exists. Returns whether a row was
// created plus the stored row.
func (r *billingRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider_event_id = ?", event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// GetUnprocessedWebhookEvents fetches up to limit queue rows oldest-first
func (r *billingRepository) GetUnprocessedWebhookEvents(limit int) ([]models.BillingWebhookEvent, error) {
	var events []models.BillingWebhookEvent
	err := r.db.Where("processed = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// UpdateWebhookEvent persists processing state of a queue row
func (r *billingRepository) UpdateWebhookEvent(event *models.BillingWebhookEvent) error {
	return r.db.Save(event).Error
}
