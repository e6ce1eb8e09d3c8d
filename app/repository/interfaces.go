package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	GetOrCreateSettings(userID uint) (*models.UserSettings, error)
	SaveSettings(settings *models.UserSettings) error
}

// TeamRepository defines the interface for team-related database operations
type TeamRepository interface {
	Create(team *models.Team) error
	GetByID(id uint) (*models.Team, error)
	GetByUserID(userID uint) ([]models.Team, error)
	Update(team *models.Team) error
	Delete(id uint) error
	AddMember(member *models.TeamMember) error
	GetMember(teamID, userID uint) (*models.TeamMember, error)
	GetMembers(teamID uint) ([]models.TeamMember, error)
	UpdateMember(member *models.TeamMember) error
	RemoveMember(teamID, userID uint) error
}

// BillingRepository defines the interface for billing-related database operations
type BillingRepository interface {
	FindActivePlanMapping(providerPriceRef string) (*models.BillingPlanMapping, error)
	UpsertSubscription(sub *models.BillingSubscription) error
	GetSubscriptionByProviderID(providerSubscriptionID string) (*models.BillingSubscription, error)
	ListSubscriptionsByUser(userID uint) ([]models.BillingSubscription, error)
	FindUserByCustomerID(providerCustomerID string) (uint, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	GetUnprocessedWebhookEvents(limit int) ([]models.BillingWebhookEvent, error)
	UpdateWebhookEvent(event *models.BillingWebhookEvent) error
}

// AuditRepository defines the interface for audit log database operations
type AuditRepository interface {
	Create(event *models.AuditEvent) error
	ListByUser(userID uint, offset, limit int) ([]models.AuditEvent, error)
	CountByUser(userID uint) (int64, error)
	GetFailedLoginsSince(since time.Time) ([]models.AuditEvent, error)
}

// IncidentRepository defines the interface for security incident operations
type IncidentRepository interface {
	Create(incident *models.SecurityIncident) error
	GetByID(id uint) (*models.SecurityIncident, error)
	GetActiveByTypeAndIP(incidentType, ip string) (*models.SecurityIncident, error)
	List(offset, limit int) ([]models.SecurityIncident, error)
	Update(incident *models.SecurityIncident) error
}

// DocumentRepository defines the interface for knowledge document operations
type DocumentRepository interface {
	Create(doc *models.KnowledgeDocument) error
	GetByUUID(uuid string) (*models.KnowledgeDocument, error)
	GetByUserID(userID uint) ([]models.KnowledgeDocument, error)
	GetBySource(userID uint, provider, fileID string) (*models.KnowledgeDocument, error)
	Update(doc *models.KnowledgeDocument) error
	Delete(id uint) error
	CountByUserID(userID uint) (int64, error)
	IncrementQueryCount(ids []uint) error
}

// JobRepository defines the interface for generation job operations
type JobRepository interface {
	Create(job *models.GenerationJob) error
	GetByUUID(uuid string) (*models.GenerationJob, error)
	GetByUserID(userID uint, offset, limit int) ([]models.GenerationJob, error)
	Update(job *models.GenerationJob) error
}

// FlagRepository defines the interface for feature flag operations
type FlagRepository interface {
	Create(flag *models.FeatureFlag) error
	GetByKey(key string) (*models.FeatureFlag, error)
	GetAll() ([]models.FeatureFlag, error)
	Update(flag *models.FeatureFlag) error
	Delete(id uint) error
}

// ConnectionRepository defines the interface for cloud connection operations
type ConnectionRepository interface {
	Upsert(conn *models.CloudConnection) error
	GetByID(id uint) (*models.CloudConnection, error)
	GetByUserAndProvider(userID uint, provider string) (*models.CloudConnection, error)
	GetByUserID(userID uint) ([]models.CloudConnection, error)
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Team       TeamRepository
	Billing    BillingRepository
	Audit      AuditRepository
	Incident   IncidentRepository
	Document   DocumentRepository
	Job        JobRepository
	Flag       FlagRepository
	Connection ConnectionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Team:       NewTeamRepository(db),
		Billing:    NewBillingRepository(db),
		Audit:      NewAuditRepository(db),
		Incident:   NewIncidentRepository(db),
		Document:   NewDocumentRepository(db),
		Job:        NewJobRepository(db),
		Flag:       NewFlagRepository(db),
		Connection: NewConnectionRepository(db),
	}
}
