package repository

import (
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

// teamRepository implements the TeamRepository interface
type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new team repository instance
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

// Create creates a team and its owner membership in one transaction
func (r *teamRepository) Create(team *models.Team) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		member := &models.TeamMember{
			TeamID: team.ID,
			UserID: team.OwnerID,
			Role:   models.TEAM_ROLE_OWNER,
		}
		return tx.Create(member).Error
	})
}

// GetByID retrieves a team by its ID
func (r *teamRepository) GetByID(id uint) (*models.Team, error) {
	var team models.Team
	if err := r.db.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// GetByUserID returns all teams the user is a member of
func (r *teamRepository) GetByUserID(userID uint) ([]models.Team, error) {
	var teams []models.Team
	err := r.db.
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Find(&teams).Error
	return teams, err
}

// Update updates an existing team
func (r *teamRepository) Update(team *models.Team) error {
	return r.db.Save(team).Error
}

// Delete soft-deletes a team and removes its memberships
func (r *teamRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Team{}, id).Error
	})
}

// AddMember adds a membership row
func (r *teamRepository) AddMember(member *models.TeamMember) error {
	return r.db.Create(member).Error
}

// GetMember retrieves a single membership by team and user
func (r *teamRepository) GetMember(teamID, userID uint) (*models.TeamMember, error) {
	var member models.TeamMember
	err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetMembers lists all memberships of a team
func (r *teamRepository) GetMembers(teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.Where("team_id = ?", teamID).Order("created_at ASC").Find(&members).Error
	return members, err
}

// UpdateMember persists a membership row
func (r *teamRepository) UpdateMember(member *models.TeamMember) error {
	return r.db.Save(member).Error
}

// RemoveMember deletes a membership by team and user
func (r *teamRepository) RemoveMember(teamID, userID uint) error {
	return r.db.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&models.TeamMember{}).Error
}
