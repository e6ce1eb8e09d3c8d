package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetTeamRepository returns the team repository instance
func (f *Factory) GetTeamRepository() TeamRepository {
	return f.GetRepositories().Team
}

// GetBillingRepository returns the billing repository instance
func (f *Factory) GetBillingRepository() BillingRepository {
	return f.GetRepositories().Billing
}

// GetAuditRepository returns the audit repository instance
func (f *Factory) GetAuditRepository() AuditRepository {
	return f.GetRepositories().Audit
}

// GetIncidentRepository returns the incident repository instance
func (f *Factory) GetIncidentRepository() IncidentRepository {
	return f.GetRepositories().Incident
}

// GetDocumentRepository returns the knowledge document repository instance
func (f *Factory) GetDocumentRepository() DocumentRepository {
	return f.GetRepositories().Document
}

// GetJobRepository returns the generation job repository instance
func (f *Factory) GetJobRepository() JobRepository {
	return f.GetRepositories().Job
}

// GetFlagRepository returns the feature flag repository instance
func (f *Factory) GetFlagRepository() FlagRepository {
	return f.GetRepositories().Flag
}

// GetConnectionRepository returns the cloud connection repository instance
func (f *Factory) GetConnectionRepository() ConnectionRepository {
	return f.GetRepositories().Connection
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
