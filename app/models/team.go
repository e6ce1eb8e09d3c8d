package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	TEAM_ROLE_OWNER  = "owner"
	TEAM_ROLE_ADMIN  = "admin"
	TEAM_ROLE_MEMBER = "member"
)

type Team struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	OwnerID   uint           `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TeamMember links a user to a team with a role. One row per team+user.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;index:ux_team_members_team_user,unique,priority:1" json:"team_id"`
	UserID    uint      `gorm:"not null;index:ux_team_members_team_user,unique,priority:2;index" json:"user_id"`
	Role      string    `gorm:"type:varchar(20);not null;default:'member'" json:"role" validate:"oneof=owner admin member"`
	InvitedBy uint      `gorm:"default:0" json:"invited_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanManageMembers reports whether the role may invite, remove or re-role members.
func (m *TeamMember) CanManageMembers() bool {
	return m.Role == TEAM_ROLE_OWNER || m.Role == TEAM_ROLE_ADMIN
}
